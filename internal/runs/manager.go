package runs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"pricewatch/internal/catalog"
	"pricewatch/internal/config"
	"pricewatch/internal/events"
	"pricewatch/internal/logging"
	"pricewatch/internal/pipeline"
	"pricewatch/pkg/utils"
)

// DefaultFetchLimit caps how many catalog products a single full run pulls.
const DefaultFetchLimit = 500

// Manager owns the run registry: it accepts runs, executes them in the
// background with bounded parallelism and keeps their state queryable until
// cleanup. It also acts as an event sink so run progress stays current
// while the pipeline works.
type Manager struct {
	cfg    *config.Config
	pl     *pipeline.Pipeline
	store  catalog.Store
	logger logging.Logger

	mu     sync.RWMutex
	runs   map[string]*Run
	closed bool

	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	fetchLimit int
}

// NewManager creates a run manager. Call SetPipeline before Submit; the
// pipeline needs the manager as its event sink, so wiring happens in two
// steps.
func NewManager(cfg *config.Config, store catalog.Store) *Manager {
	maxRuns := cfg.Runs.MaxConcurrentRuns
	if maxRuns < 1 {
		maxRuns = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		store:      store,
		logger:     logging.GetGlobalLogger(),
		runs:       make(map[string]*Run),
		sem:        semaphore.NewWeighted(int64(maxRuns)),
		ctx:        ctx,
		cancel:     cancel,
		fetchLimit: DefaultFetchLimit,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// SetPipeline attaches the pipeline runs execute on.
func (m *Manager) SetPipeline(pl *pipeline.Pipeline) {
	m.pl = pl
}

// Submit registers a run and starts it in the background. An empty
// identifier list means "everything due in the catalog".
func (m *Manager) Submit(identifiers []string) (*Run, error) {
	if m.pl == nil {
		return nil, fmt.Errorf("run manager has no pipeline attached")
	}
	if len(identifiers) == 0 && m.store == nil {
		return nil, fmt.Errorf("catalog is not configured; submit explicit identifiers")
	}

	run := &Run{
		ID:          utils.GenerateRequestID(),
		Status:      StatusAccepted,
		Site:        m.cfg.Site.Name,
		Identifiers: identifiers,
		CreatedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("run manager is shutting down")
	}
	m.runs[run.ID] = run
	accepted := run.snapshot()
	// Add under the lock so a concurrent Shutdown either rejects this run
	// or waits for it; an Add after Unlock could race past wg.Wait.
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("Run accepted", map[string]interface{}{
		"run_id":      run.ID,
		"identifiers": len(identifiers),
	})

	go m.execute(run.ID, identifiers)

	return accepted, nil
}

// Get returns a snapshot of one run.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run.snapshot(), nil
}

// List returns snapshots of all known runs, newest first.
func (m *Manager) List() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ActiveCount returns the number of runs not yet finished.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, run := range m.runs {
		if !run.Status.Terminal() {
			n++
		}
	}
	return n
}

// Publish implements events.Sink: progress events keep the run record
// current while the pipeline works.
func (m *Manager) Publish(_ context.Context, e *events.Event) {
	if e.EventType != events.EventTypeRunProgress || e.Progress == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[e.RunID]; ok {
		p := *e.Progress
		run.Progress = &p
	}
}

// Close implements events.Sink.
func (m *Manager) Close() error {
	return nil
}

// Shutdown aborts in-flight runs and waits for them to settle, bounded by
// ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("run manager shutdown timed out: %w", ctx.Err())
	}
}

func (m *Manager) execute(id string, identifiers []string) {
	defer m.wg.Done()

	if err := m.sem.Acquire(m.ctx, 1); err != nil {
		m.finish(id, StatusFailure, nil, "aborted before start: "+err.Error())
		return
	}
	defer m.sem.Release(1)

	now := time.Now().UTC()
	m.mu.Lock()
	if run, ok := m.runs[id]; ok {
		run.Status = StatusProcessing
		run.StartedAt = &now
	}
	m.mu.Unlock()

	runCtx, cancel := context.WithTimeout(m.ctx, m.cfg.Runs.RunTimeout)
	defer cancel()

	var result *pipeline.Result
	if len(identifiers) == 0 {
		products, err := m.store.FetchProducts(runCtx, m.fetchLimit)
		if err != nil {
			m.finish(id, StatusFailure, nil, "failed to fetch products: "+err.Error())
			return
		}
		result = m.pl.Run(runCtx, id, products)
	} else {
		result = m.pl.RunIdentifiers(runCtx, id, identifiers)
	}

	if runCtx.Err() != nil {
		m.finish(id, StatusFailure, result, "run aborted: "+runCtx.Err().Error())
		return
	}
	m.finish(id, StatusSuccess, result, "")
}

func (m *Manager) finish(id string, status Status, result *pipeline.Result, errMsg string) {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return
	}
	run.Status = status
	run.CompletedAt = &now
	run.Error = errMsg
	if result != nil {
		run.Results = result.Results
		run.Summary = result.Summary
	}
}

// cleanupLoop drops finished runs older than the retention window.
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	interval := m.cfg.Runs.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) cleanup() {
	cutoff := time.Now().UTC().Add(-m.cfg.Runs.MaxRunAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, run := range m.runs {
		if run.Status.Terminal() && run.CompletedAt != nil && run.CompletedAt.Before(cutoff) {
			delete(m.runs, id)
			m.logger.Debug("Expired run removed", map[string]interface{}{
				"run_id": id,
			})
		}
	}
}
