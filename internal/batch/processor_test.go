package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/config"
	"pricewatch/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	// keep tests fast
	cfg.Batch.DelayBetweenItems = 0
	cfg.Batch.DelayBetweenBatches = 0
	cfg.Batch.RetryDelay = time.Millisecond
	return cfg
}

func makeItems(n int) []models.BatchItem {
	items := make([]models.BatchItem, n)
	for i := range items {
		items[i] = models.BatchItem{
			ID:      fmt.Sprintf("item-%d", i),
			Product: models.ProductRef{GTIN: fmt.Sprintf("400580873%04d", i)},
		}
	}
	return items
}

func TestProcessReturnsResultsInInputOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Size = 4
	p := NewProcessor(cfg)

	items := makeItems(10)
	results := p.Process(context.Background(), items, func(_ context.Context, item models.BatchItem) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{Price: models.Float64Ptr(1.0), ProductURL: "https://example.com/" + item.Product.GTIN}, nil
	})

	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("item-%d", i), r.ID)
		assert.True(t, r.Success)
	}
}

func TestProcessBoundsConcurrency(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Size = 20
	cfg.Batch.Concurrency = 3
	p := NewProcessor(cfg)

	var current, peak atomic.Int32
	results := p.Process(context.Background(), makeItems(20), func(_ context.Context, _ models.BatchItem) (*models.ScrapeResult, error) {
		n := current.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return &models.ScrapeResult{Price: models.Float64Ptr(2.5)}, nil
	})

	require.Len(t, results, 20)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestProcessRetriesTransientFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.MaxAttempts = 3
	p := NewProcessor(cfg)

	var calls atomic.Int32
	results := p.Process(context.Background(), makeItems(1), func(_ context.Context, _ models.BatchItem) (*models.ScrapeResult, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("navigation timed out")
		}
		return &models.ScrapeResult{Price: models.Float64Ptr(3.99)}, nil
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, results[0].Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProcessExhaustsAttempts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.MaxAttempts = 2
	p := NewProcessor(cfg)

	results := p.Process(context.Background(), makeItems(1), func(_ context.Context, _ models.BatchItem) (*models.ScrapeResult, error) {
		return nil, errors.New("browser session lost")
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, 2, results[0].Attempts)
	assert.Contains(t, results[0].Error, "browser session lost")
}

func TestProcessTerminalResultNotRetried(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.MaxAttempts = 3
	p := NewProcessor(cfg)

	var calls atomic.Int32
	results := p.Process(context.Background(), makeItems(1), func(_ context.Context, _ models.BatchItem) (*models.ScrapeResult, error) {
		calls.Add(1)
		return models.NewErrorResult(models.ErrorKindNoMatch, models.NoMatchError), nil
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, models.NoMatchError, results[0].Error)
	assert.Equal(t, int32(1), calls.Load())
	require.NotNil(t, results[0].Data)
	assert.Equal(t, models.ErrorKindNoMatch, results[0].Data.ErrorKind)
}

func TestProcessReportsProgressPerGroup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Size = 3
	p := NewProcessor(cfg)

	var reports []models.Progress
	p.OnProgress = func(pr models.Progress) { reports = append(reports, pr) }

	p.Process(context.Background(), makeItems(7), func(_ context.Context, _ models.BatchItem) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{Price: models.Float64Ptr(1.0)}, nil
	})

	require.Len(t, reports, 3)
	assert.Equal(t, models.Progress{Completed: 3, Total: 7, Successful: 3}, reports[0])
	assert.Equal(t, models.Progress{Completed: 6, Total: 7, Successful: 6}, reports[1])
	assert.Equal(t, models.Progress{Completed: 7, Total: 7, Successful: 7}, reports[2])
}

func TestProcessCanceledContextMarksItemsFailed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Size = 10
	p := NewProcessor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan []models.BatchResult, 1)
	go func() {
		done <- p.Process(ctx, makeItems(5), func(_ context.Context, _ models.BatchItem) (*models.ScrapeResult, error) {
			return &models.ScrapeResult{Price: models.Float64Ptr(1.0)}, nil
		})
	}()

	select {
	case results := <-done:
		require.Len(t, results, 5)
		for _, r := range results {
			assert.False(t, r.Success)
			assert.NotEmpty(t, r.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return after context cancellation")
	}
}

func TestProcessEmptyInput(t *testing.T) {
	p := NewProcessor(testConfig(t))

	results := p.Process(context.Background(), nil, func(_ context.Context, _ models.BatchItem) (*models.ScrapeResult, error) {
		t.Fatal("work should not be called")
		return nil, nil
	})
	assert.Empty(t, results)
}
