package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
	"pricewatch/pkg/models"
)

// WorkFunc performs the lookup for one item. A returned error means the
// attempt is worth retrying; terminal outcomes come back inside the
// ScrapeResult with a nil error.
type WorkFunc func(ctx context.Context, item models.BatchItem) (*models.ScrapeResult, error)

// Processor runs items through a WorkFunc in groups, with bounded
// concurrency, staggered starts within a group and a pause between groups.
// Results come back in input order, one per item.
type Processor struct {
	cfg    *config.Config
	logger logging.Logger
	sem    *semaphore.Weighted

	// OnProgress, when set, is called with cumulative counts after each
	// completed group.
	OnProgress func(models.Progress)
}

// NewProcessor creates a batch processor from config.
func NewProcessor(cfg *config.Config) *Processor {
	concurrency := cfg.Batch.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		cfg:    cfg,
		logger: logging.GetGlobalLogger(),
		sem:    semaphore.NewWeighted(int64(concurrency)),
	}
}

// Process runs all items and returns one result per item, in input order.
// When ctx expires, items still waiting are marked failed instead of being
// dropped; Process always returns a full result set.
func (p *Processor) Process(ctx context.Context, items []models.BatchItem, work WorkFunc) []models.BatchResult {
	results := make([]models.BatchResult, len(items))
	if len(items) == 0 {
		return results
	}

	groupSize := p.cfg.Batch.Size
	if groupSize < 1 {
		groupSize = 1
	}

	successful, failed := 0, 0

	for start := 0; start < len(items); start += groupSize {
		end := start + groupSize
		if end > len(items) {
			end = len(items)
		}

		p.logger.Info("Processing batch group", map[string]interface{}{
			"from":  start,
			"to":    end - 1,
			"total": len(items),
		})

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if i > start && p.cfg.Batch.DelayBetweenItems > 0 && ctx.Err() == nil {
				select {
				case <-time.After(p.cfg.Batch.DelayBetweenItems):
				case <-ctx.Done():
				}
			}

			wg.Add(1)
			go func(idx int, item models.BatchItem) {
				defer wg.Done()
				results[idx] = p.processItem(ctx, item, work)
			}(i, items[i])
		}
		wg.Wait()

		for i := start; i < end; i++ {
			if results[i].Success {
				successful++
			} else {
				failed++
			}
		}

		if p.OnProgress != nil {
			p.OnProgress(models.Progress{
				Completed:  end,
				Total:      len(items),
				Successful: successful,
				Failed:     failed,
			})
		}

		if end < len(items) && p.cfg.Batch.DelayBetweenBatches > 0 && ctx.Err() == nil {
			select {
			case <-time.After(p.cfg.Batch.DelayBetweenBatches):
			case <-ctx.Done():
			}
		}
	}

	return results
}

func (p *Processor) processItem(ctx context.Context, item models.BatchItem, work WorkFunc) models.BatchResult {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return models.BatchResult{
			ID:    item.ID,
			Error: "canceled before processing started: " + err.Error(),
		}
	}
	defer p.sem.Release(1)

	maxAttempts := p.cfg.Batch.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.BatchResult{
				ID:       item.ID,
				Error:    "canceled: " + err.Error(),
				Attempts: attempt - 1,
			}
		}

		result, err := work(ctx, item)
		if err == nil {
			br := models.BatchResult{
				ID:       item.ID,
				Data:     result,
				Attempts: attempt,
			}
			if result != nil && !result.Failed() {
				br.Success = true
			} else if result != nil {
				br.Error = result.Error
			}
			return br
		}

		lastErr = err
		p.logger.Warn("Item attempt failed", map[string]interface{}{
			"item_id": item.ID,
			"gtin":    item.Product.GTIN,
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < maxAttempts && p.cfg.Batch.RetryDelay > 0 {
			select {
			case <-time.After(p.cfg.Batch.RetryDelay):
			case <-ctx.Done():
				return models.BatchResult{
					ID:       item.ID,
					Error:    lastErr.Error(),
					Attempts: attempt,
				}
			}
		}
	}

	return models.BatchResult{
		ID:       item.ID,
		Error:    lastErr.Error(),
		Attempts: maxAttempts,
	}
}
