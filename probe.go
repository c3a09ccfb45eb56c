package brandsim

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxProbeRedirects = 10
	maxTitleBytes     = 512 * 1024
	probeUserAgent    = "Mozilla/5.0 (compatible; go-brandsim/1.0)"
)

// ProbeResult describes a host that passed both reachability checks.
type ProbeResult struct {
	FinalURL   string
	StatusCode int
	Title      string // <title> of an HTML landing page, if any
}

// CheckDNS resolves rawURL's hostname within cfg.DNSTimeout.
// Any failure, including a panic in the resolver, yields ErrDNS.
func (cfg *Config) CheckDNS(ctx context.Context, rawURL string) (err error) {
	cfg.defaults()

	defer func() {
		if r := recover(); r != nil {
			cfg.panicked("dns", r)
			err = fmt.Errorf("%w: resolver panic", ErrDNS)
		}
	}()

	u, perr := url.Parse(rawURL)
	if perr != nil || u.Hostname() == "" {
		return fmt.Errorf("%w: no hostname in %q", ErrDNS, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DNSTimeout)
	defer cancel()

	addrs, lerr := cfg.Resolver.LookupHost(ctx, u.Hostname())
	if lerr != nil {
		return fmt.Errorf("%w: %v", ErrDNS, lerr)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: no addresses for %s", ErrDNS, u.Hostname())
	}
	return nil
}

// CheckHTTP issues a GET that follows redirects and succeeds on a final 2xx/3xx.
// Tries cfg.StealthClient first (if set), falls back to the probe client.
func (cfg *Config) CheckHTTP(ctx context.Context, rawURL string) (*ProbeResult, error) {
	cfg.defaults()

	if cfg.StealthClient != nil {
		res, err := cfg.probeWith(ctx, cfg.StealthClient, rawURL)
		if err == nil {
			return res, nil
		}
		cfg.Logger.Debug("brandsim: stealth probe failed", "url", rawURL, "error", err.Error())
	}

	res, err := cfg.probeWith(ctx, cfg.probeClient(), rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return res, nil
}

// Probe runs the DNS check followed by the HTTP check.
func (cfg *Config) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	if err := cfg.CheckDNS(ctx, rawURL); err != nil {
		return nil, err
	}
	return cfg.CheckHTTP(ctx, rawURL)
}

// probeClient derives a client from cfg.HTTPClient with the probe's timeout,
// redirect cap, and TLS policy applied.
func (cfg *Config) probeClient() *http.Client {
	client := &http.Client{}
	if cfg.HTTPClient != nil {
		*client = *cfg.HTTPClient
	}
	client.Timeout = cfg.HTTPTimeout
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxProbeRedirects {
			return errors.New("too many redirects")
		}
		return nil
	}

	if !cfg.VerifyTLS {
		var base *http.Transport
		if t, ok := client.Transport.(*http.Transport); ok {
			base = t.Clone()
		} else if client.Transport == nil {
			base = http.DefaultTransport.(*http.Transport).Clone()
		}
		if base != nil {
			if base.TLSClientConfig == nil {
				base.TLSClientConfig = &tls.Config{}
			}
			base.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // phishing hosts routinely serve invalid certificates
			client.Transport = base
		}
	}
	return client
}

func (cfg *Config) probeWith(ctx context.Context, client *http.Client, rawURL string) (res *ProbeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			cfg.panicked("http", r)
			res, err = nil, errors.New("probe panic")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := client.Do(req) //nolint:gosec // URL is the subject under analysis
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	res = &ProbeResult{FinalURL: resp.Request.URL.String(), StatusCode: resp.StatusCode}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		res.Title = pageTitle(io.LimitReader(resp.Body, maxTitleBytes))
	}
	return res, nil
}

// pageTitle returns the trimmed <title> text, or "" if the document has none.
func pageTitle(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
