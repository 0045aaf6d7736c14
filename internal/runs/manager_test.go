package runs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/catalog"
	"pricewatch/internal/config"
	"pricewatch/internal/pipeline"
	"pricewatch/pkg/models"
)

type stubScraper struct {
	delay  time.Duration
	result *models.ScrapeResult
}

func (s *stubScraper) ScrapeProduct(ctx context.Context, _ string) *models.ScrapeResult {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.NewErrorResult(models.ErrorKindTimeout, "canceled")
		}
	}
	if s.result != nil {
		return s.result
	}
	return &models.ScrapeResult{Price: models.Float64Ptr(3.99), ProductURL: "https://example.com/p"}
}

func (s *stubScraper) Name() string { return "stub" }
func (s *stubScraper) ClearCache() {}
func (s *stubScraper) IsHealthy() bool { return true }
func (s *stubScraper) Cleanup() error { return nil }

type stubStore struct {
	products []catalog.Product
	fetchErr error
}

func (s *stubStore) FetchProducts(context.Context, int) ([]catalog.Product, error) {
	return s.products, s.fetchErr
}

func (s *stubStore) UpdatePrice(context.Context, string, *models.ScrapeResult) error {
	return nil
}

func runsConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Batch.DelayBetweenItems = 0
	cfg.Batch.DelayBetweenBatches = 0
	cfg.Batch.RetryDelay = time.Millisecond
	cfg.Scraper.RateLimit = 6000
	cfg.Runs.RunTimeout = 5 * time.Second
	return cfg
}

func newTestManager(t *testing.T, cfg *config.Config, sc *stubScraper, store catalog.Store) *Manager {
	t.Helper()
	m := NewManager(cfg, store)
	m.SetPipeline(pipeline.New(cfg, sc, store, m))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func waitTerminal(t *testing.T, m *Manager, id string) *Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := m.Get(id)
		require.NoError(t, err)
		if run.Status.Terminal() {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish", id)
	return nil
}

func TestSubmitExplicitIdentifiers(t *testing.T) {
	m := newTestManager(t, runsConfig(t), &stubScraper{}, nil)

	run, err := m.Submit([]string{"4005808730735", "4005900123456"})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, run.Status)

	final := waitTerminal(t, m, run.ID)
	assert.Equal(t, StatusSuccess, final.Status)
	require.NotNil(t, final.Summary)
	assert.Equal(t, 2, final.Summary.TotalProcessed)
	assert.Len(t, final.Results, 2)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.CompletedAt)
}

func TestSubmitFullCatalogRun(t *testing.T) {
	store := &stubStore{products: []catalog.Product{
		{ID: "p1", GTIN: "4005808730735"},
		{ID: "p2", GTIN: "4005900123456"},
		{ID: "p3", GTIN: "4005900999999"},
	}}
	m := newTestManager(t, runsConfig(t), &stubScraper{}, store)

	run, err := m.Submit(nil)
	require.NoError(t, err)

	final := waitTerminal(t, m, run.ID)
	assert.Equal(t, StatusSuccess, final.Status)
	assert.Equal(t, 3, final.Summary.TotalProcessed)
}

func TestSubmitWithoutCatalogNeedsIdentifiers(t *testing.T) {
	m := newTestManager(t, runsConfig(t), &stubScraper{}, nil)

	_, err := m.Submit(nil)
	assert.Error(t, err)
}

func TestSubmitCatalogFetchFailure(t *testing.T) {
	store := &stubStore{fetchErr: errors.New("catalog unreachable")}
	m := newTestManager(t, runsConfig(t), &stubScraper{}, store)

	run, err := m.Submit(nil)
	require.NoError(t, err)

	final := waitTerminal(t, m, run.ID)
	assert.Equal(t, StatusFailure, final.Status)
	assert.Contains(t, final.Error, "catalog unreachable")
}

func TestRunTimeoutMarksFailure(t *testing.T) {
	cfg := runsConfig(t)
	cfg.Runs.RunTimeout = 50 * time.Millisecond
	cfg.Batch.MaxAttempts = 1
	m := newTestManager(t, cfg, &stubScraper{delay: time.Second}, nil)

	run, err := m.Submit([]string{"4005808730735"})
	require.NoError(t, err)

	final := waitTerminal(t, m, run.ID)
	assert.Equal(t, StatusFailure, final.Status)
	// the item is reported, not dropped
	assert.Len(t, final.Results, 1)
	assert.True(t, final.Results["4005808730735"].Failed())
}

func TestGetUnknownRun(t *testing.T) {
	m := newTestManager(t, runsConfig(t), &stubScraper{}, nil)

	_, err := m.Get("no-such-run")
	assert.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	m := newTestManager(t, runsConfig(t), &stubScraper{}, nil)

	first, err := m.Submit([]string{"4005808730735"})
	require.NoError(t, err)
	waitTerminal(t, m, first.ID)

	second, err := m.Submit([]string{"4005900123456"})
	require.NoError(t, err)
	waitTerminal(t, m, second.ID)

	list := m.List()
	require.Len(t, list, 2)
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))
}

func TestCleanupRemovesExpiredRuns(t *testing.T) {
	cfg := runsConfig(t)
	cfg.Runs.MaxRunAge = time.Minute
	m := newTestManager(t, cfg, &stubScraper{}, nil)

	run, err := m.Submit([]string{"4005808730735"})
	require.NoError(t, err)
	waitTerminal(t, m, run.ID)

	// age the run past retention and force a cleanup pass
	m.mu.Lock()
	old := time.Now().UTC().Add(-2 * time.Minute)
	m.runs[run.ID].CompletedAt = &old
	m.mu.Unlock()
	m.cleanup()

	_, err = m.Get(run.ID)
	assert.Error(t, err)
}

func TestShutdownWaitsForSubmittedRun(t *testing.T) {
	m := newTestManager(t, runsConfig(t), &stubScraper{delay: 100 * time.Millisecond}, nil)

	run, err := m.Submit([]string{"4005808730735"})
	require.NoError(t, err)

	// Shutdown must not return before the run it accepted has settled,
	// even when it starts right after Submit.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	final, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.True(t, final.Status.Terminal())
}

func TestConcurrentSubmitAndShutdown(t *testing.T) {
	m := newTestManager(t, runsConfig(t), &stubScraper{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Submit([]string{"4005808730735"})
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	wg.Wait()

	// every run Submit accepted was waited for
	for _, run := range m.List() {
		assert.True(t, run.Status.Terminal())
	}
}

func TestSubmitAfterShutdownRejected(t *testing.T) {
	m := newTestManager(t, runsConfig(t), &stubScraper{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	_, err := m.Submit([]string{"4005808730735"})
	assert.Error(t, err)
}
