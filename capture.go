package brandsim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// Capturer renders a URL into an image file at savePath and returns the
// written path. A failed capture returns an error wrapping ErrCapture.
type Capturer interface {
	Capture(ctx context.Context, url, savePath string) (string, error)
}

// Capture defaults.
const (
	DefaultCaptureRetries  = 1
	DefaultPageLoadTimeout = 12 * time.Second
	DefaultSettleDelay     = 2500 * time.Millisecond
	DefaultCaptureBackoff  = 1500 * time.Millisecond
)

// NoRetries as ChromeCapturer.Retries makes a single attempt. Zero selects
// DefaultCaptureRetries.
const NoRetries = -1

// shootFunc renders url and returns the encoded screenshot.
type shootFunc func(ctx context.Context, c *ChromeCapturer, url string) ([]byte, error)

// ChromeCapturer takes viewport screenshots with headless Chrome via chromedp.
// Every attempt launches a fresh browser.
type ChromeCapturer struct {
	Width, Height   int           // viewport, default 1280×720
	Retries         int           // extra attempts after the first; 0 means the default of 1, NoRetries disables
	PageLoadTimeout time.Duration // default 12s
	Settle          time.Duration // wait after navigation for late layout, default 2.5s
	Backoff         time.Duration // pause between attempts, default 1.5s
	ExecPath        string        // optional Chrome binary

	Logger  *slog.Logger
	OnPanic func(tag string, r any)

	shoot shootFunc // test hook; nil means chromeShoot
}

func (c *ChromeCapturer) defaults() {
	if c.Width <= 0 {
		c.Width = DefaultCanvasWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultCanvasHeight
	}
	if c.Retries == 0 {
		c.Retries = DefaultCaptureRetries
	}
	if c.PageLoadTimeout <= 0 {
		c.PageLoadTimeout = DefaultPageLoadTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettleDelay
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultCaptureBackoff
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.shoot == nil {
		c.shoot = chromeShoot
	}
}

// Capture renders url and writes the screenshot to savePath, retrying
// sequentially with a backoff. It never panics.
func (c *ChromeCapturer) Capture(ctx context.Context, url, savePath string) (string, error) {
	c.defaults()

	attempts := 1 + max(c.Retries, 0)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.attempt(ctx, url, savePath)
		if err == nil {
			return savePath, nil
		}
		lastErr = err
		c.Logger.Warn("brandsim: capture attempt failed",
			"url", url, "attempt", attempt, "of", attempts, "error", err.Error())

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrCapture, ctx.Err())
		case <-time.After(c.Backoff):
		}
	}
	return "", fmt.Errorf("%w: %v", ErrCapture, lastErr)
}

func (c *ChromeCapturer) attempt(ctx context.Context, url, savePath string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("brandsim: capture panic", "url", url, "panic", r)
			if c.OnPanic != nil {
				c.OnPanic("capture", r)
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	buf, err := c.shoot(ctx, c, url)
	if err != nil {
		return err
	}
	if len(buf) == 0 {
		return errors.New("empty screenshot")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("undecodable screenshot: %w", err)
	}

	if dir := filepath.Dir(savePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(savePath, buf, 0o644)
}

// chromeShoot launches a browser, navigates and captures the viewport.
func chromeShoot(ctx context.Context, c *ChromeCapturer, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("allow-insecure-localhost", true),
		chromedp.Flag("incognito", true),
		chromedp.WindowSize(c.Width, c.Height),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, c.PageLoadTimeout+c.Settle+c.PageLoadTimeout)
	defer cancelRun()

	if err := chromedp.Run(runCtx,
		emulation.SetDeviceMetricsOverride(int64(c.Width), int64(c.Height), 1, false),
	); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(runCtx, c.PageLoadTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(url))
	cancelNav()
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	var buf []byte
	if err := chromedp.Run(runCtx,
		chromedp.Sleep(c.Settle),
		chromedp.CaptureScreenshot(&buf),
	); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}
