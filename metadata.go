package brandsim

import (
	"bytes"
	"os"
	"strings"

	"github.com/bep/imagemeta"
)

// ImageProvenance is what an uploaded screenshot says about its own origin.
// Genuine browser screenshots usually carry none of it; an editor name in
// Software or CreatorTool suggests the image was retouched.
type ImageProvenance struct {
	Software    string `json:"software,omitempty"`
	Artist      string `json:"artist,omitempty"`
	DateTime    string `json:"date_time,omitempty"`
	CreatorTool string `json:"creator_tool,omitempty"`
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.EXIF: {
		"Software": true,
		"Artist":   true,
		"DateTime": true,
	},
	imagemeta.XMP: {
		"CreatorTool": true,
	},
}

// ExtractProvenance parses EXIF/XMP provenance fields from raw image bytes.
// Returns nil if the data is empty, unparseable, or carries none of the fields.
func ExtractProvenance(data []byte) *ImageProvenance {
	if len(data) == 0 {
		return nil
	}

	p := &ImageProvenance{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			s := strings.TrimSpace(tagValueString(ti.Value))
			if s == "" {
				return nil
			}
			switch ti.Tag {
			case "Software":
				p.Software = s
			case "Artist":
				p.Artist = s
			case "DateTime":
				p.DateTime = s
			case "CreatorTool":
				p.CreatorTool = s
			default:
				return nil
			}
			found = true
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return p
}

// ExtractProvenanceFile is ExtractProvenance for a file on disk.
func ExtractProvenanceFile(path string) *ImageProvenance {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return ExtractProvenance(data)
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
