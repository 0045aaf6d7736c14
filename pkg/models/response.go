package models

import "time"

// ScrapeResponse is the response to a synchronous scrape request.
type ScrapeResponse struct {
	Success        bool          `json:"success"`
	Identifier     string        `json:"identifier"`
	Result         *ScrapeResult `json:"result,omitempty"`
	Error          string        `json:"error,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	Engine         string        `json:"engine_used"`
	RequestID      string        `json:"request_id"`
}

// BatchScrapeResponse is the response to a synchronous batch lookup.
type BatchScrapeResponse struct {
	Results        map[string]*ScrapeResult `json:"results"`
	Summary        *RunSummary              `json:"summary"`
	ProcessingTime time.Duration            `json:"processing_time"`
	Engine         string                   `json:"engine_used"`
	RequestID      string                   `json:"request_id"`
}

// RunAccepted is returned when an asynchronous run has been queued.
type RunAccepted struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
