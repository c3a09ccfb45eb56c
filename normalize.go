package brandsim

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Normalizer places images on a fixed-size canvas so metrics compare like with like.
type Normalizer struct {
	Width, Height int         // default 1280×720
	Background    color.Color // default white
}

func (n Normalizer) size() (int, int, color.Color) {
	w, h, bg := n.Width, n.Height, n.Background
	if w <= 0 {
		w = DefaultCanvasWidth
	}
	if h <= 0 {
		h = DefaultCanvasHeight
	}
	if bg == nil {
		bg = color.White
	}
	return w, h, bg
}

// Blank returns an empty canvas of the configured size and color.
func (n Normalizer) Blank() *image.RGBA {
	w, h, bg := n.size()
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return canvas
}

// Normalize downscales img to fit the canvas, keeping its aspect ratio, and
// centers it on the background. Images that already fit are not upscaled.
// A nil img yields a blank canvas.
func (n Normalizer) Normalize(img image.Image) *image.RGBA {
	canvas := n.Blank()
	if img == nil {
		return canvas
	}
	src := img.Bounds()
	if src.Empty() {
		return canvas
	}

	cw, ch := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	w, h := fitWithin(src.Dx(), src.Dy(), cw, ch)
	off := image.Pt((cw-w)/2, (ch-h)/2)
	dst := image.Rect(off.X, off.Y, off.X+w, off.Y+h)

	if w == src.Dx() && h == src.Dy() {
		draw.Draw(canvas, dst, img, src.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(canvas, dst, img, src, draw.Over, nil)
	}
	return canvas
}

// NormalizeFile decodes the image at path and normalizes it. Decode
// failures yield a blank canvas; ok reports whether decoding succeeded.
func (n Normalizer) NormalizeFile(path string) (canvas *image.RGBA, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return n.Blank(), false
	}
	return n.NormalizeBytes(data)
}

// NormalizeBytes is NormalizeFile for in-memory image data.
func (n Normalizer) NormalizeBytes(data []byte) (canvas *image.RGBA, ok bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return n.Blank(), false
	}
	return n.Normalize(img), true
}

// fitWithin scales (w, h) down to fit (maxW, maxH), like a thumbnail.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	if w*maxH > h*maxW {
		nh := max(1, h*maxW/w)
		return maxW, nh
	}
	nw := max(1, w*maxH/h)
	return nw, maxH
}
