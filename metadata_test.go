package brandsim

import (
	"path/filepath"
	"testing"
)

func TestExtractProvenance_NoMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "empty", data: []byte{}},
		{name: "garbage", data: []byte("not an image at all")},
		{name: "plain png", data: makePNG(16, 16, blue, yellow)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractProvenance(tc.data); got != nil {
				t.Errorf("ExtractProvenance() = %+v, want nil", got)
			}
		})
	}
}

func TestExtractProvenanceFile_Missing(t *testing.T) {
	t.Parallel()

	if got := ExtractProvenanceFile(filepath.Join(t.TempDir(), "missing.png")); got != nil {
		t.Errorf("ExtractProvenanceFile(missing) = %+v, want nil", got)
	}
}

func TestTagValueString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "GIMP 2.10", want: "GIMP 2.10"},
		{name: "string slice", in: []string{"Photoshop", "ignored"}, want: "Photoshop"},
		{name: "empty slice", in: []string{}, want: ""},
		{name: "any slice", in: []any{"Canva"}, want: "Canva"},
		{name: "any slice non-string", in: []any{42}, want: ""},
		{name: "int", in: 7, want: ""},
		{name: "nil", in: nil, want: ""},
	}
	for _, tc := range tests {
		if got := tagValueString(tc.in); got != tc.want {
			t.Errorf("tagValueString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
