package brandsim

import (
	"fmt"
	"image"
	"log/slog"
)

// Metric names as they appear in results and explanations.
const (
	MetricImage = "image"
	MetricColor = "color"
	MetricText  = "text"
)

// MetricScores holds one value per similarity axis.
type MetricScores struct {
	Image float64 `json:"image"`
	Color float64 `json:"color"`
	Text  float64 `json:"text"`
}

// SimilarityResult is the outcome of comparing a reference with a screenshot.
// When Computable is false, Score carries no meaning and must not be read as
// a low score.
type SimilarityResult struct {
	Computable bool
	Score      float64
	Metrics    MetricScores
	Weights    Weights
	Failed     map[string]error // metrics that degraded to 0
}

// Engine scores normalized image pairs on the structural, color and text axes.
type Engine struct {
	Normalizer    Normalizer
	Weights       Weights // default: DefaultWeights
	HistogramBins int     // default: 32
	OCR           TextRecognizer

	Logger  *slog.Logger
	OnPanic func(tag string, r any)
}

// Compare normalizes the images at refPath and userPath and scores them.
// A file that cannot be decoded is compared as a blank canvas. If neither
// decodes, or every metric fails, the result is not computable and the
// returned error wraps ErrNotComputable.
func (e *Engine) Compare(refPath, userPath string) (SimilarityResult, error) {
	ref, refOK := e.Normalizer.NormalizeFile(refPath)
	user, userOK := e.Normalizer.NormalizeFile(userPath)
	if !refOK && !userOK {
		return SimilarityResult{Weights: e.weights()},
			fmt.Errorf("%w: neither %s nor %s decodes", ErrNotComputable, refPath, userPath)
	}
	if !refOK || !userOK {
		e.logger().Warn("brandsim: comparing against blank canvas",
			"reference_ok", refOK, "user_ok", userOK, "reference", refPath, "user", userPath)
	}
	return e.CompareImages(ref, user)
}

// CompareImages scores two already-normalized images.
func (e *Engine) CompareImages(ref, user image.Image) (SimilarityResult, error) {
	res := SimilarityResult{Weights: e.weights(), Failed: map[string]error{}}

	res.Metrics.Image = e.metric(MetricImage, res.Failed, func() (float64, error) {
		return StructuralSimilarity(ref, user)
	})
	res.Metrics.Color = e.metric(MetricColor, res.Failed, func() (float64, error) {
		return ColorSimilarity(ref, user, e.HistogramBins)
	})
	res.Metrics.Text = e.metric(MetricText, res.Failed, func() (float64, error) {
		return e.textSimilarity(ref, user)
	})

	if len(res.Failed) == 3 {
		return res, fmt.Errorf("%w: all metrics failed", ErrNotComputable)
	}
	res.Computable = true
	res.Score = res.Weights.Composite(res.Metrics)
	return res, nil
}

func (e *Engine) textSimilarity(ref, user image.Image) (float64, error) {
	refText, err := recognize(e.OCR, ref)
	if err != nil {
		return 0, fmt.Errorf("reference: %w", err)
	}
	userText, err := recognize(e.OCR, user)
	if err != nil {
		return 0, fmt.Errorf("user: %w", err)
	}
	return TextSimilarity(refText, userText), nil
}

// metric runs fn, isolating errors and panics: a failed metric scores 0.
func (e *Engine) metric(name string, failed map[string]error, fn func() (float64, error)) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger().Error("brandsim: metric panic", "metric", name, "panic", r)
			if e.OnPanic != nil {
				e.OnPanic("metric:"+name, r)
			}
			failed[name] = fmt.Errorf("%w: %s: panic: %v", ErrMetric, name, r)
			score = 0
		}
	}()

	v, err := fn()
	if err != nil {
		e.logger().Warn("brandsim: metric failed", "metric", name, "error", err.Error())
		failed[name] = fmt.Errorf("%w: %s: %v", ErrMetric, name, err)
		return 0
	}
	return v
}

func (e *Engine) weights() Weights {
	if e.Weights == (Weights{}) || !e.Weights.Valid() {
		return DefaultWeights
	}
	return e.Weights
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
