package events

import (
	"context"

	"pricewatch/internal/logging"
)

// LoggerSink writes run events to the structured log. Always available,
// even when redis is not configured.
type LoggerSink struct {
	logger logging.Logger
}

func NewLoggerSink() *LoggerSink {
	return &LoggerSink{logger: logging.GetGlobalLogger()}
}

func (s *LoggerSink) Publish(_ context.Context, event *Event) {
	fields := map[string]interface{}{
		"event_id":   event.EventID,
		"event_type": string(event.EventType),
		"run_id":     event.RunID,
	}
	if event.Site != "" {
		fields["site"] = event.Site
	}
	if event.Progress != nil {
		fields["completed"] = event.Progress.Completed
		fields["total"] = event.Progress.Total
	}
	if event.Summary != nil {
		fields["prices_found"] = event.Summary.PricesFound
		fields["success_rate"] = event.Summary.FormatSuccessRate()
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}

	if event.EventType == EventTypeRunFailed {
		s.logger.Error("Run event", fields)
		return
	}
	s.logger.Info("Run event", fields)
}

func (s *LoggerSink) Close() error {
	return nil
}
