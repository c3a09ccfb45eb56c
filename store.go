package brandsim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageExtensions are the file extensions recognized in both stores, in lookup order.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReferenceStore is a read-only directory of {brand}_ref.<ext> images.
type ReferenceStore struct {
	Dir string
}

// Brands lists the brand identifiers with a reference image, sorted.
func (s ReferenceStore) Brands() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var brands []string
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		brand, ok := strings.CutSuffix(stem, ReferenceSuffix)
		if !ok || brand == "" || seen[brand] {
			continue
		}
		seen[brand] = true
		brands = append(brands, brand)
	}
	sort.Strings(brands)
	return brands, nil
}

// Lookup returns the reference image path for an exact brand identifier.
func (s ReferenceStore) Lookup(brand string) (string, bool) {
	if brand == "" {
		return "", false
	}
	for _, ext := range ImageExtensions {
		p := filepath.Join(s.Dir, brand+ReferenceSuffix+ext)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Fuzzy resolves a noisy identifier to the closest known brand.
func (s ReferenceStore) Fuzzy(candidate string, threshold float64) (brand string, score float64, ok bool) {
	brands, err := s.Brands()
	if err != nil || len(brands) == 0 {
		return "", 0, false
	}
	return FuzzyMatch(candidate, brands, threshold)
}

// ReferenceMatch describes how a reference image was found.
type ReferenceMatch struct {
	Brand string
	Path  string
	Fuzzy bool
	Score float64 // fuzzy score, 100 for exact matches
	Edits int     // Levenshtein distance from the candidate, 0 for exact matches
}

// Resolve tries an exact lookup, then a fuzzy match at threshold.
func (s ReferenceStore) Resolve(candidate string, threshold float64) (ReferenceMatch, bool) {
	if p, ok := s.Lookup(candidate); ok {
		return ReferenceMatch{Brand: candidate, Path: p, Score: 100}, true
	}
	brand, score, ok := s.Fuzzy(candidate, threshold)
	if !ok {
		return ReferenceMatch{}, false
	}
	p, ok := s.Lookup(brand)
	if !ok {
		return ReferenceMatch{}, false
	}
	return ReferenceMatch{Brand: brand, Path: p, Fuzzy: true, Score: score, Edits: EditDistance(candidate, brand)}, true
}

// CaptureStore is a read-write directory of {domain}_user.<ext> screenshots.
// It has no locking: concurrent writers for one domain race on the same file.
type CaptureStore struct {
	Dir string
}

// PathFor is where a fresh capture for domain is written.
func (s CaptureStore) PathFor(domain string) string {
	return filepath.Join(s.Dir, domain+CaptureSuffix+".png")
}

// Existing returns PathFor(domain) if that file is present.
func (s CaptureStore) Existing(domain string) (string, bool) {
	p := s.PathFor(domain)
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() && fi.Size() > 0 {
		return p, true
	}
	return "", false
}

// FindByPrefix returns the first image file, in name order, whose name starts
// with domain (case-insensitive).
func (s CaptureStore) FindByPrefix(domain string) (string, bool) {
	if domain == "" {
		return "", false
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", false
	}
	prefix := strings.ToLower(domain)
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			return filepath.Join(s.Dir, e.Name()), true
		}
	}
	return "", false
}

// Stage copies an uploaded image into the store under its base name and
// returns the stored path.
func (s CaptureStore) Stage(name string, r io.Reader) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || !isImageFile(base) {
		return "", fmt.Errorf("%w: %q is not an image filename", ErrInput, name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(s.Dir, base)
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	return p, f.Close()
}
