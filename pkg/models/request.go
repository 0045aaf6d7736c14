package models

import "time"

// ScrapeRequest asks for a synchronous single-identifier lookup.
type ScrapeRequest struct {
	Identifier string        `json:"identifier" validate:"required,numeric,min=8,max=14"`
	Timeout    time.Duration `json:"timeout,omitempty"`
}

// BatchScrapeRequest asks for a synchronous lookup of several identifiers.
type BatchScrapeRequest struct {
	Identifiers []string `json:"identifiers" validate:"required,min=1,max=50,dive,numeric,min=8,max=14"`
}

// RunRequest triggers an asynchronous pipeline run. When Identifiers is
// empty the server falls back to the full catalog set.
type RunRequest struct {
	Identifiers []string `json:"identifiers,omitempty" validate:"omitempty,dive,numeric,min=8,max=14"`
}
