package brandsim

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
	"gocv.io/x/gocv"
)

// ColorSimilarity compares the 3-D color histograms of a and b (bins per
// channel) by correlation. The result is in [-1, 1]; negative values mean
// strongly dissimilar palettes and are reported as-is.
func ColorSimilarity(a, b image.Image, bins int) (float64, error) {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	ha, err := colorHistogram(a, bins)
	if err != nil {
		return 0, err
	}
	defer ha.Close()
	hb, err := colorHistogram(b, bins)
	if err != nil {
		return 0, err
	}
	defer hb.Close()

	return float64(gocv.CompareHist(ha, hb, gocv.HistCmpCorrel)), nil
}

// colorHistogram returns an L2-normalized bins³ BGR histogram. The caller closes it.
func colorHistogram(img image.Image, bins int) (gocv.Mat, error) {
	bgr, err := bgrMat(img)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer bgr.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	hist := gocv.NewMat()
	gocv.CalcHist([]gocv.Mat{bgr}, []int{0, 1, 2}, mask, &hist,
		[]int{bins, bins, bins}, []float64{0, 256, 0, 256, 0, 256}, false)
	if hist.Empty() {
		hist.Close()
		return gocv.Mat{}, errors.New("empty histogram")
	}
	gocv.Normalize(hist, &hist, 1, 0, gocv.NormL2)
	return hist, nil
}

// bgrMat copies img into an 8-bit BGR Mat. The caller closes it.
func bgrMat(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.Mat{}, errors.New("nil image")
	}
	rgba := toRGBA(img)
	b := rgba.Bounds()
	if b.Empty() {
		return gocv.Mat{}, errors.New("empty image")
	}

	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer src.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(src, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// toRGBA returns img as a tightly packed *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
