package brandsim

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// InputKind says whether a request targets a local image or a remote URL.
type InputKind int

const (
	KindRemoteURL InputKind = iota
	KindLocalImage
)

func (k InputKind) String() string {
	if k == KindLocalImage {
		return "local_image"
	}
	return "remote_url"
}

// Input is a classified request.
type Input struct {
	Kind InputKind
	Raw  string
	URL  string // normalized URL, set for KindRemoteURL
	Path string // filesystem path without file://, set for KindLocalImage
}

const fileScheme = "file://"

var (
	schemeRe   = regexp.MustCompile(`^[a-zA-Z]+://`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// IsLocalImage reports whether s carries the file:// scheme or names an existing path.
func IsLocalImage(s string) bool {
	if strings.HasPrefix(strings.ToLower(s), fileScheme) {
		return true
	}
	if s == "" {
		return false
	}
	_, err := os.Stat(s)
	return err == nil
}

// NormalizeURL prepends https:// when s has no scheme.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if !schemeRe.MatchString(s) {
		return "https://" + s
	}
	return s
}

// ClassifyInput decides between a local image and a remote URL.
func ClassifyInput(s string) Input {
	if IsLocalImage(s) {
		p := s
		if strings.HasPrefix(strings.ToLower(p), fileScheme) {
			p = p[len(fileScheme):]
		}
		return Input{Kind: KindLocalImage, Raw: s, Path: p}
	}
	return Input{Kind: KindRemoteURL, Raw: s, URL: NormalizeURL(s)}
}

// BrandFromFilename guesses a brand from an image filename such as
// "paypal_user.png": the first alphanumeric token of the lowercased stem.
func BrandFromFilename(path string) (string, error) {
	base := strings.ToLower(filepath.Base(path))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, tok := range nonAlnumRe.Split(stem, -1) {
		if tok != "" {
			return tok, nil
		}
	}
	return "", fmt.Errorf("%w: cannot guess brand from %q, rename the file like 'brand_user.png'", ErrInput, filepath.Base(path))
}

// ExtractDomain returns the brand key for rawURL's host.
// IP literals and single-label hosts are returned whole.
func ExtractDomain(rawURL string, mode DomainKey) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInput, err)
	}
	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.Trim(host, ".")
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInput, rawURL)
	}
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host, nil
	}

	if mode == DomainKeyRegistrable {
		if reg, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			host = reg
		}
	}
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "", fmt.Errorf("%w: empty leading label in %q", ErrInput, host)
	}
	return label, nil
}

// BrandKey is ExtractDomain with the configured DomainKey.
func (cfg *Config) BrandKey(rawURL string) (string, error) {
	return ExtractDomain(rawURL, cfg.DomainKey)
}
