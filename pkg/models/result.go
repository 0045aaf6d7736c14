package models

// ErrorKind classifies a scrape failure for retry and logging decisions.
// The batch layer retries only kinds that can plausibly succeed on a
// second attempt; a no-match would reproduce the identical negative
// result and is therefore terminal.
type ErrorKind string

const (
	// ErrorKindNone marks a result without a failure.
	ErrorKindNone ErrorKind = ""
	// ErrorKindTimeout marks a navigation that did not complete in time.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindNoMatch marks a loaded page where no candidate URL
	// contained the searched identifier.
	ErrorKindNoMatch ErrorKind = "no_match"
	// ErrorKindExtraction marks a page whose structure matched none of
	// the known selector strategies.
	ErrorKindExtraction ErrorKind = "extraction"
	// ErrorKindSession marks a browser session that could not be created
	// or died mid-use.
	ErrorKindSession ErrorKind = "session"
	// ErrorKindBlocked marks a page that loaded with materially empty
	// content, the usual signature of an anti-bot wall.
	ErrorKindBlocked ErrorKind = "blocked"
)

// Retryable reports whether a failure of this kind is worth another
// attempt with the same strategy.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindTimeout, ErrorKindSession:
		return true
	default:
		return false
	}
}

// NoMatchError is the canonical message for a deliberate miss: the page
// loaded but no candidate's URL contained the searched identifier.
const NoMatchError = "No matching product found"

// ScrapeResult is the normalized outcome of one identifier lookup on one
// external site. Exactly one of (price or product URL present) or (error
// present) is the expected steady state. A result with neither is a miss
// and must never be cached or treated as a success.
type ScrapeResult struct {
	Price       *float64  `json:"price,omitempty"`
	ProductURL  string    `json:"product_url,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
}

// Found reports whether the result carries anything worth keeping: a
// price or at least a validated product URL.
func (r *ScrapeResult) Found() bool {
	return r != nil && (r.Price != nil || r.ProductURL != "")
}

// Failed reports whether the result represents a failure.
func (r *ScrapeResult) Failed() bool {
	return r == nil || r.Error != ""
}

// NewErrorResult builds a failure result of the given kind.
func NewErrorResult(kind ErrorKind, message string) *ScrapeResult {
	return &ScrapeResult{Error: message, ErrorKind: kind}
}

// Float64Ptr returns a pointer to v. Handy for building results with a
// literal price.
func Float64Ptr(v float64) *float64 {
	return &v
}
