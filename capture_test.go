package brandsim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedShoot returns results[i] on the i-th call, repeating the last one.
func scriptedShoot(calls *atomic.Int32, results ...func() ([]byte, error)) shootFunc {
	return func(_ context.Context, _ *ChromeCapturer, _ string) ([]byte, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(results) {
			i = len(results) - 1
		}
		return results[i]()
	}
}

func shotOK() ([]byte, error)   { return makePNG(64, 36, blue, yellow), nil }
func shotFail() ([]byte, error) { return nil, errBoom }

func TestChromeCapturer_Defaults(t *testing.T) {
	t.Parallel()

	c := &ChromeCapturer{}
	c.defaults()
	if c.Width != 1280 || c.Height != 720 {
		t.Errorf("viewport = %dx%d, want 1280x720", c.Width, c.Height)
	}
	if c.Retries != 1 {
		t.Errorf("Retries = %d, want 1", c.Retries)
	}
	if c.PageLoadTimeout != 12*time.Second {
		t.Errorf("PageLoadTimeout = %v, want 12s", c.PageLoadTimeout)
	}
	if c.Settle != 2500*time.Millisecond {
		t.Errorf("Settle = %v, want 2.5s", c.Settle)
	}
	if c.Backoff != 1500*time.Millisecond {
		t.Errorf("Backoff = %v, want 1.5s", c.Backoff)
	}
}

func TestChromeCapturer_Capture(t *testing.T) {
	t.Parallel()

	undecodable := func() ([]byte, error) { return []byte("not an image"), nil }
	empty := func() ([]byte, error) { return nil, nil }
	boom := func() ([]byte, error) { panic("renderer crashed") }

	tests := []struct {
		name      string
		retries   int
		results   []func() ([]byte, error)
		wantErr   bool
		wantCalls int32
	}{
		{name: "first attempt succeeds", results: []func() ([]byte, error){shotOK}, wantCalls: 1},
		{name: "second attempt succeeds", results: []func() ([]byte, error){shotFail, shotOK}, wantCalls: 2},
		{name: "fails twice", results: []func() ([]byte, error){shotFail}, wantErr: true, wantCalls: 2},
		{name: "no retries", retries: NoRetries, results: []func() ([]byte, error){shotFail, shotOK}, wantErr: true, wantCalls: 1},
		{name: "zero retries means default", retries: 0, results: []func() ([]byte, error){shotFail, shotOK}, wantCalls: 2},
		{name: "two retries", retries: 2, results: []func() ([]byte, error){shotFail, shotFail, shotOK}, wantCalls: 3},
		{name: "undecodable bytes", results: []func() ([]byte, error){undecodable}, wantErr: true, wantCalls: 2},
		{name: "empty bytes", results: []func() ([]byte, error){empty}, wantErr: true, wantCalls: 2},
		{name: "panic recovered then success", results: []func() ([]byte, error){boom, shotOK}, wantCalls: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			var panics atomic.Int32
			save := filepath.Join(t.TempDir(), "User", "paypal_user.png")
			c := &ChromeCapturer{
				Retries: tc.retries,
				Backoff: time.Millisecond,
				Logger:  discardLogger(),
				OnPanic: func(string, any) { panics.Add(1) },
				shoot:   scriptedShoot(&calls, tc.results...),
			}

			got, err := c.Capture(context.Background(), "https://paypal.com", save)
			if calls.Load() != tc.wantCalls {
				t.Errorf("attempts = %d, want %d", calls.Load(), tc.wantCalls)
			}
			if tc.wantErr {
				if !errors.Is(err, ErrCapture) {
					t.Fatalf("Capture() error = %v, want ErrCapture", err)
				}
				if got != "" {
					t.Errorf("Capture() path = %q, want empty", got)
				}
				if _, statErr := os.Stat(save); statErr == nil {
					t.Error("failed capture left a file behind")
				}
				return
			}
			if err != nil {
				t.Fatalf("Capture() unexpected error: %v", err)
			}
			if got != save {
				t.Errorf("Capture() path = %q, want %q", got, save)
			}
			if _, ok := (Normalizer{}).NormalizeFile(save); !ok {
				t.Error("written screenshot does not decode")
			}
		})
	}
}

func TestChromeCapturer_PanicReported(t *testing.T) {
	t.Parallel()

	var calls, panics atomic.Int32
	c := &ChromeCapturer{
		Retries: NoRetries,
		Backoff: time.Millisecond,
		Logger:  discardLogger(),
		OnPanic: func(tag string, _ any) {
			if tag == "capture" {
				panics.Add(1)
			}
		},
		shoot: scriptedShoot(&calls, func() ([]byte, error) { panic("boom") }),
	}
	if _, err := c.Capture(context.Background(), "https://x.test", filepath.Join(t.TempDir(), "x_user.png")); !errors.Is(err, ErrCapture) {
		t.Fatalf("Capture() error = %v, want ErrCapture", err)
	}
	if panics.Load() != 1 {
		t.Errorf("OnPanic calls = %d, want 1", panics.Load())
	}
}

func TestChromeCapturer_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	c := &ChromeCapturer{
		Backoff: time.Hour,
		Logger:  discardLogger(),
		shoot: func(context.Context, *ChromeCapturer, string) ([]byte, error) {
			calls.Add(1)
			cancel()
			return nil, errBoom
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Capture(ctx, "https://x.test", filepath.Join(t.TempDir(), "x_user.png"))
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCapture) {
			t.Errorf("Capture() error = %v, want ErrCapture", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Capture() did not return after context cancellation")
	}
	if calls.Load() != 1 {
		t.Errorf("attempts = %d, want 1", calls.Load())
	}
}
