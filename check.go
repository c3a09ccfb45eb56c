package brandsim

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Outcome names the terminal state a check ended in.
type Outcome string

const (
	OutcomeScored           Outcome = "scored"
	OutcomeNoBrand          Outcome = "no-brand"
	OutcomeNoReference      Outcome = "no-reference"
	OutcomeInvalidURL       Outcome = "invalid-url"
	OutcomeDNSFailed        Outcome = "dns-failed"
	OutcomeUnreachable      Outcome = "unreachable"
	OutcomeScreenshotFailed Outcome = "screenshot-failed"
	OutcomeSimilarityFailed Outcome = "similarity-failed"
)

// Details carries either the per-metric scores (scored checks) or a
// human-readable reason (everything else).
type Details struct {
	Message string
	Metrics *MetricScores
}

// MarshalJSON emits {"image","color","text"} for scored checks and
// {"message"} otherwise.
func (d Details) MarshalJSON() ([]byte, error) {
	if d.Metrics != nil {
		return json.Marshal(d.Metrics)
	}
	return json.Marshal(struct {
		Message string `json:"message"`
	}{d.Message})
}

// CheckResult is the structured answer for one input. It has the same shape
// for every outcome. When Score is set, ReferenceImage, UserScreenshot and
// Details.Metrics are set too.
type CheckResult struct {
	Brand            string
	ReferenceImage   string
	UserScreenshot   string
	Score            *float64
	Details          Details
	Weights          *Weights
	Outcome          Outcome
	Explanation      *Explanation
	ScreenshotSource string // cache, capture, prefix or upload
	PageTitle        string
	Provenance       *ImageProvenance
}

// MarshalJSON writes empty optional fields as null so every outcome has the same keys.
func (r CheckResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Brand            *string          `json:"brand"`
		ReferenceImage   *string          `json:"reference_image"`
		UserScreenshot   *string          `json:"user_screenshot"`
		Score            *float64         `json:"score"`
		Details          Details          `json:"details"`
		Weights          *Weights         `json:"weights"`
		Outcome          Outcome          `json:"outcome"`
		Explanation      *Explanation     `json:"explanation,omitempty"`
		ScreenshotSource string           `json:"screenshot_source,omitempty"`
		PageTitle        string           `json:"page_title,omitempty"`
		Provenance       *ImageProvenance `json:"provenance,omitempty"`
	}{
		Brand:            nullable(r.Brand),
		ReferenceImage:   nullable(r.ReferenceImage),
		UserScreenshot:   nullable(r.UserScreenshot),
		Score:            r.Score,
		Details:          r.Details,
		Weights:          r.Weights,
		Outcome:          r.Outcome,
		Explanation:      r.Explanation,
		ScreenshotSource: r.ScreenshotSource,
		PageTitle:        r.PageTitle,
		Provenance:       r.Provenance,
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// checkRun is the mutable state threaded through the state functions.
type checkRun struct {
	ctx      context.Context
	cfg      *Config
	refs     ReferenceStore
	captures CaptureStore

	input  Input
	domain string
	ref    ReferenceMatch
	hasRef bool

	result CheckResult
}

// stateFn is one state of the check; it returns the next state, or nil when
// the run has reached a terminal outcome.
type stateFn func(*checkRun) stateFn

// CheckWebsite scores input (a URL or a local image path) against the brand
// reference it most likely imitates. It never panics and never returns an
// error: every failure is reported through CheckResult.Outcome and
// CheckResult.Details.Message.
func (cfg *Config) CheckWebsite(ctx context.Context, input string) (res CheckResult) {
	c := *cfg
	c.defaults()
	start := time.Now()

	run := &checkRun{
		ctx:      ctx,
		cfg:      &c,
		refs:     ReferenceStore{Dir: c.ReferenceDir},
		captures: CaptureStore{Dir: c.CaptureDir},
	}

	defer func() {
		if r := recover(); r != nil {
			c.panicked("check", r)
			if run.result.UserScreenshot != "" {
				run.finish(OutcomeSimilarityFailed, "Similarity analysis failed for this brand.")
			} else {
				run.finish(OutcomeScreenshotFailed, "Analysis aborted by an internal error.")
			}
			run.result.Score, run.result.Weights, run.result.Explanation = nil, nil, nil
			run.result.Details.Metrics = nil
		}
		res = run.result
		if c.OnCheck != nil {
			c.OnCheck(CheckEvent{
				Input:    input,
				Brand:    res.Brand,
				Outcome:  res.Outcome,
				Score:    res.Score,
				Duration: time.Since(start),
			})
		}
	}()

	run.input = ClassifyInput(input)
	for state := stateClassified; state != nil; {
		state = state(run)
	}
	return run.result
}

// finish records a terminal outcome and stops the machine.
func (r *checkRun) finish(o Outcome, msg string) stateFn {
	r.result.Outcome = o
	if msg != "" {
		r.result.Details.Message = msg
	}
	r.cfg.Logger.Info("brandsim: check finished",
		"input", r.input.Raw, "brand", r.result.Brand, "outcome", string(o), "message", msg)
	return nil
}

func stateClassified(r *checkRun) stateFn {
	if r.input.Kind == KindLocalImage {
		return stateLocalImage
	}
	return stateRemoteURL
}

func stateLocalImage(r *checkRun) stateFn {
	brand, err := BrandFromFilename(r.input.Path)
	if err != nil {
		return r.finish(OutcomeNoBrand,
			"Local image provided but cannot guess brand name from filename. Rename like 'paypal_user.png'.")
	}
	r.result.Brand = brand
	r.result.UserScreenshot = r.input.Path
	r.result.ScreenshotSource = "upload"
	r.result.Provenance = ExtractProvenanceFile(r.input.Path)

	ref, ok := r.refs.Resolve(brand, r.cfg.FuzzyThreshold)
	if !ok {
		return r.finish(OutcomeNoReference,
			fmt.Sprintf("No reference image found for '%s'. Similarity analysis not available.", brand))
	}
	r.useReference(ref)
	return stateScore
}

func stateRemoteURL(r *checkRun) stateFn {
	domain, err := r.cfg.BrandKey(r.input.URL)
	if err != nil {
		return r.finish(OutcomeInvalidURL, "Invalid URL (cannot extract domain).")
	}
	r.domain = domain
	r.result.Brand = domain
	return stateProbe
}

func stateProbe(r *checkRun) stateFn {
	if err := r.cfg.CheckDNS(r.ctx, r.input.URL); err != nil {
		r.cfg.Logger.Debug("brandsim: dns probe failed", "url", r.input.URL, "error", err.Error())
		return r.finish(OutcomeDNSFailed, fmt.Sprintf("DNS resolution failed for '%s'.", r.input.URL))
	}
	probe, err := r.cfg.CheckHTTP(r.ctx, r.input.URL)
	if err != nil {
		r.cfg.Logger.Debug("brandsim: http probe failed", "url", r.input.URL, "error", err.Error())
		return r.finish(OutcomeUnreachable, fmt.Sprintf("'%s' not reachable (HTTP check failed).", r.input.URL))
	}
	r.result.PageTitle = probe.Title
	return stateResolveReference
}

func stateResolveReference(r *checkRun) stateFn {
	if ref, ok := r.refs.Resolve(r.domain, r.cfg.FuzzyThreshold); ok {
		r.useReference(ref)
	} else {
		r.cfg.Logger.Debug("brandsim: no reference, capturing for manual review", "domain", r.domain)
	}
	return stateScreenshot
}

func stateScreenshot(r *checkRun) stateFn {
	chain := DefaultScreenshotChain(r.captures, r.cfg.Capturer, r.cfg.Logger)
	shot, source, err := chain.Resolve(r.ctx, ScreenshotTarget{URL: r.input.URL, Domain: r.domain})
	if err == nil {
		r.result.UserScreenshot = shot
		r.result.ScreenshotSource = source
	}

	switch {
	case !r.hasRef && err != nil:
		return r.finish(OutcomeNoReference, "Screenshot failed. Similarity analysis not available.")
	case !r.hasRef:
		return r.finish(OutcomeNoReference,
			fmt.Sprintf("No reference image found for '%s'. Similarity analysis not available.", r.domain))
	case err != nil:
		return r.finish(OutcomeScreenshotFailed, "Screenshot failed. Similarity analysis not available.")
	}
	return stateScore
}

func stateScore(r *checkRun) stateFn {
	sim, err := r.cfg.engine().Compare(r.ref.Path, r.result.UserScreenshot)
	if err != nil || !sim.Computable {
		if err == nil {
			err = ErrNotComputable
		}
		r.cfg.Logger.Warn("brandsim: similarity not computable", "brand", r.result.Brand, "error", err.Error())
		return r.finish(OutcomeSimilarityFailed, "Similarity analysis failed for this brand.")
	}

	score := sim.Score
	metrics := sim.Metrics
	weights := sim.Weights
	explanation := Explain(metrics, weights, score)

	r.result.Score = &score
	r.result.Details = Details{Metrics: &metrics}
	r.result.Weights = &weights
	r.result.Explanation = &explanation
	for name, ferr := range sim.Failed {
		r.cfg.Logger.Debug("brandsim: metric degraded to zero", "metric", name, "error", ferr.Error())
	}
	return r.finish(OutcomeScored, "")
}

func (r *checkRun) useReference(ref ReferenceMatch) {
	r.ref, r.hasRef = ref, true
	r.result.Brand = ref.Brand
	r.result.ReferenceImage = ref.Path
	if ref.Fuzzy {
		r.cfg.Logger.Info("brandsim: fuzzy matched brand",
			"candidate", r.input.Raw, "brand", ref.Brand, "score", ref.Score, "edits", ref.Edits)
	}
}

// errorFor maps an outcome to the sentinel error class it stems from, or nil.
func errorFor(o Outcome) error {
	switch o {
	case OutcomeNoBrand, OutcomeInvalidURL:
		return ErrInput
	case OutcomeDNSFailed:
		return ErrDNS
	case OutcomeUnreachable:
		return ErrUnreachable
	case OutcomeScreenshotFailed:
		return ErrCapture
	case OutcomeSimilarityFailed:
		return ErrNotComputable
	}
	return nil
}

// Err returns the failure class of a result (nil for scored and no-reference
// outcomes), so callers can branch with errors.Is.
func (r CheckResult) Err() error {
	if err := errorFor(r.Outcome); err != nil {
		if r.Details.Message != "" {
			return fmt.Errorf("%w: %s", err, r.Details.Message)
		}
		return err
	}
	return nil
}
