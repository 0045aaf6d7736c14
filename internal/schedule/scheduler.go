package schedule

import (
	"context"
	"sync"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
	"pricewatch/internal/runs"
)

// Scheduler kicks off a full catalog run on a fixed interval, so prices
// stay fresh without anyone calling the API.
type Scheduler struct {
	cfg     *config.Config
	manager *runs.Manager
	logger  logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func New(cfg *config.Config, manager *runs.Manager) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		manager: manager,
		logger:  logging.GetGlobalLogger(),
	}
}

// Start launches the scheduling loop. No-op when disabled in config.
func (s *Scheduler) Start() {
	if !s.cfg.Scheduler.Enabled {
		s.logger.Info("Scheduler disabled", map[string]interface{}{})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx)

	s.logger.Info("Scheduler started", map[string]interface{}{
		"interval": s.cfg.Scheduler.Interval.String(),
	})
}

// Stop halts the loop. Runs already submitted keep going.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.done
	s.running = false
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	interval := s.cfg.Scheduler.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger()
		}
	}
}

func (s *Scheduler) trigger() {
	// skip the tick when runs are still in flight; overlapping full runs
	// would hammer the same site twice
	if s.manager.ActiveCount() > 0 {
		s.logger.Info("Skipping scheduled run, previous run still active", map[string]interface{}{})
		return
	}

	run, err := s.manager.Submit(nil)
	if err != nil {
		s.logger.Error("Failed to submit scheduled run", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.logger.Info("Scheduled run submitted", map[string]interface{}{
		"run_id": run.ID,
	})
}
