package brandsim

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// makeImage returns a w×h image with two colored blocks and horizontal
// stripes so perceptual hashes and histograms have something to work with.
func makeImage(w, h int, a, b color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := a
			if x > w/2 {
				c = b
			}
			if (y/8)%3 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

var (
	blue   = color.RGBA{R: 0, G: 48, B: 135, A: 255}
	yellow = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	red    = color.RGBA{R: 200, G: 20, B: 20, A: 255}
	green  = color.RGBA{R: 10, G: 160, B: 60, A: 255}
)

// makePNG returns makeImage(w, h, a, b) PNG-encoded.
func makePNG(w, h int, a, b color.RGBA) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, makeImage(w, h, a, b)); err != nil {
		panic("makePNG: " + err.Error())
	}
	return buf.Bytes()
}

// writeFile writes data to dir/name and returns the path.
func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOCR returns fixed text per call, keyed by call order.
type fakeOCR struct {
	mu    sync.Mutex
	texts []string
	err   error
	calls int
}

func (f *fakeOCR) RecognizeText(_ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	return f.texts[(f.calls-1)%len(f.texts)], nil
}

// fakeCapturer writes a fixed PNG, or fails with err.
type fakeCapturer struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
}

func (f *fakeCapturer) Capture(_ context.Context, _ string, savePath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(savePath, f.data, 0o644); err != nil {
		return "", err
	}
	return savePath, nil
}

func (f *fakeCapturer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeResolver answers every lookup with addrs or err.
type fakeResolver struct {
	addrs []string
	err   error
	panic bool
}

func (f fakeResolver) LookupHost(_ context.Context, _ string) ([]string, error) {
	if f.panic {
		panic("resolver exploded")
	}
	return f.addrs, f.err
}

var errBoom = errors.New("boom")
