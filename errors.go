package brandsim

import "errors"

// Failure classes. Callers match them with errors.Is; none of them escape
// CheckWebsite, which reports them as data in CheckResult.
var (
	// ErrInput marks unusable input: an unparseable URL or a filename with no brand token.
	ErrInput = errors.New("brandsim: unusable input")
	// ErrDNS marks a hostname that did not resolve.
	ErrDNS = errors.New("brandsim: dns resolution failed")
	// ErrUnreachable marks a host that resolved but did not answer with 2xx/3xx.
	ErrUnreachable = errors.New("brandsim: host unreachable")
	// ErrCapture marks a screenshot that could not be produced after all retries.
	ErrCapture = errors.New("brandsim: screenshot capture failed")
	// ErrMetric marks a single similarity metric that could not be computed.
	ErrMetric = errors.New("brandsim: metric failed")
	// ErrNotComputable marks a comparison where no meaningful score exists.
	ErrNotComputable = errors.New("brandsim: similarity not computable")
)
