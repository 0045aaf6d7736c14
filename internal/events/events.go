package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pricewatch/pkg/models"
)

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventTypeRunStarted   EventType = "RUN_STARTED"
	EventTypeRunProgress  EventType = "RUN_PROGRESS"
	EventTypeRunCompleted EventType = "RUN_COMPLETED"
	EventTypeRunFailed    EventType = "RUN_FAILED"
)

// Event is one run lifecycle notification.
type Event struct {
	EventID   string             `json:"event_id"`
	EventType EventType          `json:"event_type"`
	Timestamp time.Time          `json:"timestamp"`
	RunID     string             `json:"run_id"`
	Site      string             `json:"site,omitempty"`
	Progress  *models.Progress   `json:"progress,omitempty"`
	Summary   *models.RunSummary `json:"summary,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// NewEvent creates an event with identity and timestamp filled in.
func NewEvent(eventType EventType, runID string) *Event {
	return &Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

// Sink receives run lifecycle events. Publish must not block the pipeline;
// a broken sink degrades observability, never the run itself.
type Sink interface {
	Publish(ctx context.Context, event *Event)
	Close() error
}

// MultiSink fans events out to several sinks.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Publish(ctx context.Context, event *Event) {
	for _, s := range m.sinks {
		s.Publish(ctx, event)
	}
}

func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
