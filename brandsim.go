package brandsim

import (
	"context"
	"image/color"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"
)

// Defaults for the probe, capture and scoring stages.
const (
	DefaultDNSTimeout     = 3 * time.Second
	DefaultHTTPTimeout    = 6 * time.Second
	DefaultFuzzyThreshold = 60
	DefaultHistogramBins  = 32
	DefaultCanvasWidth    = 1280
	DefaultCanvasHeight   = 720
)

// ReferenceSuffix and CaptureSuffix are the filename stem suffixes of the two stores.
const (
	ReferenceSuffix = "_ref"
	CaptureSuffix   = "_user"
)

// DomainKey selects how a URL host is turned into a brand key.
type DomainKey int

const (
	// DomainKeyRegistrable keys by the first label of the registrable domain
	// ("mail.paypal.com" → "paypal").
	DomainKeyRegistrable DomainKey = iota
	// DomainKeyFirstLabel keys by the first label of the full host
	// ("mail.paypal.com" → "mail").
	DomainKeyFirstLabel
)

// Resolver abstracts hostname resolution. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Weights are the per-metric coefficients of the composite score.
type Weights struct {
	Image float64 `json:"image"`
	Color float64 `json:"color"`
	Text  float64 `json:"text"`
}

// DefaultWeights favor visual layout over color, with OCR text as the weakest signal.
var DefaultWeights = Weights{Image: 0.5, Color: 0.4, Text: 0.1}

const weightTolerance = 1e-6

// Valid reports whether all weights are non-negative and sum to 1.
func (w Weights) Valid() bool {
	if w.Image < 0 || w.Color < 0 || w.Text < 0 {
		return false
	}
	return math.Abs(w.Image+w.Color+w.Text-1) <= weightTolerance
}

// Composite returns the weighted sum of m.
func (w Weights) Composite(m MetricScores) float64 {
	return w.Image*m.Image + w.Color*m.Color + w.Text*m.Text
}

// Config holds all dependencies and tunables for CheckWebsite.
// Zero values mean "use defaults".
type Config struct {
	ReferenceDir string // directory of {brand}_ref.<ext> images (read-only)
	CaptureDir   string // directory of {domain}_user.<ext> images (read-write cache)

	Resolver      Resolver       // default: net.DefaultResolver
	HTTPClient    *http.Client   // optional: base client for the HTTP probe
	StealthClient *http.Client   // optional: tried first by the HTTP probe
	Capturer      Capturer       // default: ChromeCapturer with default settings
	OCR           TextRecognizer // default: Tesseract with English

	DNSTimeout  time.Duration // default: 3s
	HTTPTimeout time.Duration // default: 6s

	// VerifyTLS enables certificate verification in the HTTP probe (default off).
	VerifyTLS bool

	DomainKey DomainKey

	// FuzzyThreshold is the minimum MatchScore (0–100) for a fuzzy reference
	// match. Zero or negative selects DefaultFuzzyThreshold; to accept any
	// non-zero score use a small positive value such as 0.001.
	FuzzyThreshold float64
	Weights        Weights // default: DefaultWeights
	HistogramBins  int     // default: 32
	CanvasWidth    int     // default: 1280
	CanvasHeight   int     // default: 720
	Background     color.Color

	Logger *slog.Logger // default: slog.Default()

	// Optional callbacks for metrics/logging.
	OnPanic func(tag string, r any)
	OnCheck func(CheckEvent) // optional: audit log for every terminal outcome
}

// CheckEvent is emitted through Config.OnCheck once per CheckWebsite call.
type CheckEvent struct {
	Input    string
	Brand    string
	Outcome  Outcome
	Score    *float64
	Duration time.Duration
}

func (c *Config) defaults() {
	if c.Resolver == nil {
		c.Resolver = net.DefaultResolver
	}
	if c.DNSTimeout <= 0 {
		c.DNSTimeout = DefaultDNSTimeout
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.HistogramBins <= 0 {
		c.HistogramBins = DefaultHistogramBins
	}
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = DefaultCanvasWidth
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = DefaultCanvasHeight
	}
	if c.Background == nil {
		c.Background = color.White
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights
	} else if !c.Weights.Valid() {
		c.Logger.Warn("brandsim: invalid weights, using defaults",
			"image", c.Weights.Image, "color", c.Weights.Color, "text", c.Weights.Text)
		c.Weights = DefaultWeights
	}
	if c.OCR == nil {
		c.OCR = &Tesseract{Languages: []string{"eng"}}
	}
	if c.Capturer == nil {
		c.Capturer = &ChromeCapturer{Width: c.CanvasWidth, Height: c.CanvasHeight, Logger: c.Logger, OnPanic: c.OnPanic}
	}
}

func (c *Config) normalizer() Normalizer {
	return Normalizer{Width: c.CanvasWidth, Height: c.CanvasHeight, Background: c.Background}
}

func (c *Config) engine() *Engine {
	return &Engine{
		Normalizer:    c.normalizer(),
		Weights:       c.Weights,
		HistogramBins: c.HistogramBins,
		OCR:           c.OCR,
		Logger:        c.Logger,
		OnPanic:       c.OnPanic,
	}
}

func (c *Config) panicked(tag string, r any) {
	c.Logger.Error("brandsim: recovered panic", "stage", tag, "panic", r)
	if c.OnPanic != nil {
		c.OnPanic(tag, r)
	}
}
