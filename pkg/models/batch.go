package models

import "fmt"

// ProductRef identifies one catalog product to look up on a competitor
// site. The GTIN is the universal key; the name is carried along for
// logging only.
type ProductRef struct {
	GTIN string `json:"gtin"`
	Name string `json:"name,omitempty"`
}

// BatchItem is one unit of work submitted to the batch processor.
type BatchItem struct {
	ID      string     `json:"id"`
	Product ProductRef `json:"product"`
}

// BatchResult is the outcome for one submitted BatchItem. The processor
// emits exactly one BatchResult per BatchItem, in input order; no item is
// ever silently dropped.
type BatchResult struct {
	ID       string        `json:"id"`
	Success  bool          `json:"success"`
	Data     *ScrapeResult `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
}

// Progress carries monotonically advancing cumulative counts, reported
// after each completed batch group.
type Progress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// RunSummary is the final tally of one pipeline run over a full
// identifier set.
type RunSummary struct {
	TotalProcessed int     `json:"total_processed"`
	PricesFound    int     `json:"prices_found"`
	URLsFound      int     `json:"urls_found"`
	Errored        int     `json:"errored"`
	SuccessRate    float64 `json:"success_rate"`
}

// FormatSuccessRate renders the price hit rate as a one-decimal
// percentage, e.g. "42.9%". A 0% rate is a valid outcome, not an error.
func (s *RunSummary) FormatSuccessRate() string {
	return fmt.Sprintf("%.1f%%", s.SuccessRate)
}

// Summarize builds a RunSummary from a completed result set.
func Summarize(results map[string]*ScrapeResult) *RunSummary {
	s := &RunSummary{TotalProcessed: len(results)}
	for _, r := range results {
		switch {
		case r == nil:
			s.Errored++
		case r.Price != nil:
			s.PricesFound++
			if r.ProductURL != "" {
				s.URLsFound++
			}
		case r.ProductURL != "":
			s.URLsFound++
		default:
			s.Errored++
		}
	}
	if s.TotalProcessed > 0 {
		s.SuccessRate = float64(s.PricesFound) / float64(s.TotalProcessed) * 100
	}
	return s
}
