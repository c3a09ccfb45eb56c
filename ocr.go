package brandsim

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// TextRecognizer extracts text from an encoded (PNG) image.
type TextRecognizer interface {
	RecognizeText(png []byte) (string, error)
}

// Tesseract recognizes text with a Tesseract client per call.
// gosseract clients are not safe for concurrent use, so none is shared.
type Tesseract struct {
	Languages []string // default: eng
}

// RecognizeText runs Tesseract over png with automatic page segmentation.
func (t *Tesseract) RecognizeText(png []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	langs := t.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("set psm: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// BinarizeForOCR converts img to grayscale, applies a 3×3 median blur and
// Otsu thresholding, and returns the result PNG-encoded.
func BinarizeForOCR(img image.Image) ([]byte, error) {
	bgr, err := bgrMat(img)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.MedianBlur(gray, &denoised, 3)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(denoised, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// recognize binarizes img and runs r over it.
func recognize(r TextRecognizer, img image.Image) (string, error) {
	if r == nil {
		return "", nil
	}
	png, err := BinarizeForOCR(img)
	if err != nil {
		return "", fmt.Errorf("preprocess: %w", err)
	}
	return r.RecognizeText(png)
}
