package runs

import (
	"time"

	"pricewatch/pkg/models"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusAccepted   Status = "ACCEPTED"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailure    Status = "FAILURE"
)

// Terminal reports whether the run has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Run is one submitted price check over a set of identifiers.
type Run struct {
	ID          string                          `json:"id"`
	Status      Status                          `json:"status"`
	Site        string                          `json:"site"`
	Identifiers []string                        `json:"identifiers,omitempty"`
	CreatedAt   time.Time                       `json:"created_at"`
	StartedAt   *time.Time                      `json:"started_at,omitempty"`
	CompletedAt *time.Time                      `json:"completed_at,omitempty"`
	Progress    *models.Progress                `json:"progress,omitempty"`
	Summary     *models.RunSummary              `json:"summary,omitempty"`
	Results     map[string]*models.ScrapeResult `json:"results,omitempty"`
	Error       string                          `json:"error,omitempty"`
}

// snapshot returns a copy safe to hand out while the manager keeps
// mutating the original.
func (r *Run) snapshot() *Run {
	c := *r
	if r.Progress != nil {
		p := *r.Progress
		c.Progress = &p
	}
	if r.Summary != nil {
		s := *r.Summary
		c.Summary = &s
	}
	if r.Results != nil {
		c.Results = make(map[string]*models.ScrapeResult, len(r.Results))
		for k, v := range r.Results {
			c.Results[k] = v
		}
	}
	if r.Identifiers != nil {
		c.Identifiers = append([]string(nil), r.Identifiers...)
	}
	return &c
}
