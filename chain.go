package brandsim

import (
	"context"
	"errors"
	"log/slog"
)

// ScreenshotTarget names the page whose screenshot is wanted.
type ScreenshotTarget struct {
	URL    string
	Domain string // capture-store key
}

// ScreenshotSource is one tier of the screenshot fallback chain.
type ScreenshotSource interface {
	Name() string
	Screenshot(ctx context.Context, t ScreenshotTarget) (string, error)
}

// errNoScreenshot is returned by a tier that has nothing to offer.
var errNoScreenshot = errors.New("brandsim: no screenshot from source")

// CachedScreenshot reuses {domain}_user.png from an earlier run. Entries
// never expire.
type CachedScreenshot struct{ Store CaptureStore }

func (CachedScreenshot) Name() string { return "cache" }

func (s CachedScreenshot) Screenshot(_ context.Context, t ScreenshotTarget) (string, error) {
	if p, ok := s.Store.Existing(t.Domain); ok {
		return p, nil
	}
	return "", errNoScreenshot
}

// LiveCapture renders the page into {domain}_user.png.
type LiveCapture struct {
	Store    CaptureStore
	Capturer Capturer
}

func (LiveCapture) Name() string { return "capture" }

func (s LiveCapture) Screenshot(ctx context.Context, t ScreenshotTarget) (string, error) {
	if s.Capturer == nil {
		return "", errNoScreenshot
	}
	return s.Capturer.Capture(ctx, t.URL, s.Store.PathFor(t.Domain))
}

// PrefixFallback picks any stored image whose name starts with the domain.
type PrefixFallback struct{ Store CaptureStore }

func (PrefixFallback) Name() string { return "prefix" }

func (s PrefixFallback) Screenshot(_ context.Context, t ScreenshotTarget) (string, error) {
	if p, ok := s.Store.FindByPrefix(t.Domain); ok {
		return p, nil
	}
	return "", errNoScreenshot
}

// ScreenshotChain tries its sources in order and returns the first hit.
type ScreenshotChain struct {
	Sources []ScreenshotSource
	Logger  *slog.Logger
}

// DefaultScreenshotChain is cache → live capture → prefix fallback.
func DefaultScreenshotChain(store CaptureStore, capturer Capturer, logger *slog.Logger) ScreenshotChain {
	return ScreenshotChain{
		Sources: []ScreenshotSource{
			CachedScreenshot{Store: store},
			LiveCapture{Store: store, Capturer: capturer},
			PrefixFallback{Store: store},
		},
		Logger: logger,
	}
}

// Resolve returns the screenshot path and the name of the source that produced it.
// When every source fails the error wraps ErrCapture.
func (c ScreenshotChain) Resolve(ctx context.Context, t ScreenshotTarget) (path, source string, err error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, s := range c.Sources {
		p, err := s.Screenshot(ctx, t)
		if err == nil && p != "" {
			logger.Debug("brandsim: screenshot resolved", "domain", t.Domain, "source", s.Name(), "path", p)
			return p, s.Name(), nil
		}
		if err != nil && !errors.Is(err, errNoScreenshot) {
			errs = append(errs, err)
		}
	}
	return "", "", errors.Join(append([]error{ErrCapture}, errs...)...)
}
