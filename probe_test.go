package brandsim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckDNS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resolver Resolver
		url      string
		wantErr  bool
	}{
		{name: "resolves", resolver: fakeResolver{addrs: []string{"192.0.2.1"}}, url: "https://paypal.com"},
		{name: "lookup error", resolver: fakeResolver{err: errBoom}, url: "http://unknownbrand-xyz123.test", wantErr: true},
		{name: "no addresses", resolver: fakeResolver{}, url: "https://paypal.com", wantErr: true},
		{name: "resolver panic", resolver: fakeResolver{panic: true}, url: "https://paypal.com", wantErr: true},
		{name: "no hostname", resolver: fakeResolver{addrs: []string{"192.0.2.1"}}, url: "https://", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Resolver: tc.resolver, Logger: discardLogger()}
			err := cfg.CheckDNS(context.Background(), tc.url)
			if tc.wantErr {
				if !errors.Is(err, ErrDNS) {
					t.Errorf("CheckDNS() error = %v, want ErrDNS", err)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckDNS() unexpected error: %v", err)
			}
		})
	}
}

func TestCheckDNS_IPLiteralWithRealResolver(t *testing.T) {
	t.Parallel()

	cfg := &Config{Logger: discardLogger()}
	if err := cfg.CheckDNS(context.Background(), "http://127.0.0.1:1/"); err != nil {
		t.Errorf("CheckDNS(ip literal) unexpected error: %v", err)
	}
}

func TestCheckHTTP_StatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "200 ok", status: http.StatusOK},
		{name: "204 no content", status: http.StatusNoContent},
		{name: "304 not modified", status: http.StatusNotModified},
		{name: "404 not found", status: http.StatusNotFound, wantErr: true},
		{name: "500 server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			cfg := &Config{Logger: discardLogger()}
			res, err := cfg.CheckHTTP(context.Background(), srv.URL)
			if tc.wantErr {
				if !errors.Is(err, ErrUnreachable) {
					t.Errorf("CheckHTTP() error = %v, want ErrUnreachable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckHTTP() unexpected error: %v", err)
			}
			if res.StatusCode != tc.status {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tc.status)
			}
		})
	}
}

func TestCheckHTTP_FollowsRedirectsAndReadsTitle(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>\n  PayPal:   Log in\n</title></head><body>hi</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := &Config{Logger: discardLogger()}
	res, err := cfg.CheckHTTP(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("CheckHTTP() unexpected error: %v", err)
	}
	if res.FinalURL != srv.URL+"/login" {
		t.Errorf("FinalURL = %q, want %q", res.FinalURL, srv.URL+"/login")
	}
	if res.Title != "PayPal: Log in" {
		t.Errorf("Title = %q, want %q", res.Title, "PayPal: Log in")
	}
}

func TestCheckHTTP_RedirectLoopFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	cfg := &Config{Logger: discardLogger()}
	if _, err := cfg.CheckHTTP(context.Background(), srv.URL+"/"); !errors.Is(err, ErrUnreachable) {
		t.Errorf("CheckHTTP(redirect loop) error = %v, want ErrUnreachable", err)
	}
}

func TestCheckHTTP_InvalidCertificate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	insecure := &Config{Logger: discardLogger()}
	if _, err := insecure.CheckHTTP(context.Background(), srv.URL); err != nil {
		t.Errorf("CheckHTTP(VerifyTLS=false) unexpected error: %v", err)
	}

	strict := &Config{Logger: discardLogger(), VerifyTLS: true}
	if _, err := strict.CheckHTTP(context.Background(), srv.URL); !errors.Is(err, ErrUnreachable) {
		t.Errorf("CheckHTTP(VerifyTLS=true) error = %v, want ErrUnreachable", err)
	}
}

func TestCheckHTTP_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := &Config{Logger: discardLogger(), HTTPTimeout: 50 * time.Millisecond}
	if _, err := cfg.CheckHTTP(context.Background(), srv.URL); !errors.Is(err, ErrUnreachable) {
		t.Errorf("CheckHTTP(slow server) error = %v, want ErrUnreachable", err)
	}
}

func TestCheckHTTP_StealthClientFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	stealthCalls := 0
	stealthClient := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		stealthCalls++
		return nil, errBoom
	})}

	cfg := &Config{StealthClient: stealthClient, Logger: discardLogger()}
	res, err := cfg.CheckHTTP(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("CheckHTTP() unexpected error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200 from fallback client", res.StatusCode)
	}
	if stealthCalls != 1 {
		t.Errorf("stealth client calls = %d, want 1", stealthCalls)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestProbe_DNSFailureSkipsHTTP(t *testing.T) {
	t.Parallel()

	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
	}))
	defer srv.Close()

	cfg := &Config{Resolver: fakeResolver{err: errBoom}, Logger: discardLogger()}
	if _, err := cfg.Probe(context.Background(), srv.URL); !errors.Is(err, ErrDNS) {
		t.Fatalf("Probe() error = %v, want ErrDNS", err)
	}
	if hit {
		t.Error("HTTP probe ran after DNS failure")
	}
}
