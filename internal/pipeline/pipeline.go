package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricewatch/internal/batch"
	"pricewatch/internal/catalog"
	"pricewatch/internal/config"
	"pricewatch/internal/events"
	"pricewatch/internal/logging"
	"pricewatch/internal/scraper"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

// errThrottled makes the batch layer back off and retry instead of failing
// the item outright.
var errThrottled = errors.New("site request throttled")

// Result is the complete outcome of one run.
type Result struct {
	// Results maps each requested identifier to its scrape outcome. Every
	// requested identifier has an entry.
	Results map[string]*models.ScrapeResult
	Items   []models.BatchResult
	Summary *models.RunSummary
}

// Pipeline drives a full price check: products in, scraped results out,
// catalog updated, events published along the way.
type Pipeline struct {
	cfg     *config.Config
	scraper scraper.ProductScraper
	limiter *batch.SiteLimiter
	store   catalog.Store
	sink    events.Sink
	logger  logging.Logger
}

// New wires a pipeline. store may be nil for runs that only report results;
// sink may be nil to disable event publishing.
func New(cfg *config.Config, sc scraper.ProductScraper, store catalog.Store, sink events.Sink) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		scraper: sc,
		limiter: batch.NewSiteLimiter(cfg),
		store:   store,
		sink:    sink,
		logger:  logging.GetGlobalLogger(),
	}
}

// Run processes all products and returns one result per product. The
// context bounds the whole run; on expiry unprocessed products are reported
// as failed, never dropped.
func (p *Pipeline) Run(ctx context.Context, runID string, products []catalog.Product) *Result {
	return p.run(ctx, runID, products, true)
}

// RunIdentifiers runs ad hoc identifiers that are not catalog records. No
// write-back happens.
func (p *Pipeline) RunIdentifiers(ctx context.Context, runID string, identifiers []string) *Result {
	products := make([]catalog.Product, len(identifiers))
	for i, id := range identifiers {
		products[i] = catalog.Product{ID: id, GTIN: id}
	}
	return p.run(ctx, runID, products, false)
}

func (p *Pipeline) run(ctx context.Context, runID string, products []catalog.Product, updateCatalog bool) *Result {
	site := p.cfg.Site.Name
	start := time.Now()

	p.publish(ctx, p.startedEvent(runID, site, len(products)))

	items := make([]models.BatchItem, len(products))
	for i, product := range products {
		items[i] = models.BatchItem{
			ID: product.ID,
			Product: models.ProductRef{
				GTIN: product.GTIN,
				Name: product.Name,
			},
		}
	}

	// one processor per run so concurrent runs keep separate progress state
	processor := batch.NewProcessor(p.cfg)
	processor.OnProgress = func(progress models.Progress) {
		e := events.NewEvent(events.EventTypeRunProgress, runID)
		e.Site = site
		e.Progress = &progress
		p.publish(ctx, e)
	}

	batchResults := processor.Process(ctx, items, p.lookup)

	results := make(map[string]*models.ScrapeResult, len(products))
	for i, br := range batchResults {
		result := br.Data
		if result == nil {
			kind := models.ErrorKindSession
			if ctx.Err() != nil {
				kind = models.ErrorKindTimeout
			}
			result = models.NewErrorResult(kind, br.Error)
		}
		results[products[i].GTIN] = result
	}

	if updateCatalog {
		p.writeBack(ctx, products, results)
	}

	summary := models.Summarize(results)
	p.logger.Info("Run finished", map[string]interface{}{
		"run_id":       runID,
		"site":         site,
		"processed":    summary.TotalProcessed,
		"prices_found": summary.PricesFound,
		"success_rate": summary.FormatSuccessRate(),
		"duration":     utils.FormatDuration(time.Since(start)),
	})

	if ctx.Err() != nil {
		e := events.NewEvent(events.EventTypeRunFailed, runID)
		e.Site = site
		e.Summary = summary
		e.Error = fmt.Sprintf("run aborted: %v", ctx.Err())
		p.publish(context.WithoutCancel(ctx), e)
	} else {
		e := events.NewEvent(events.EventTypeRunCompleted, runID)
		e.Site = site
		e.Summary = summary
		p.publish(ctx, e)
	}

	return &Result{
		Results: results,
		Items:   batchResults,
		Summary: summary,
	}
}

// lookup is the per-item work function handed to the batch processor.
// Retryable failures become Go errors so the processor retries them;
// terminal outcomes pass through as data.
func (p *Pipeline) lookup(ctx context.Context, item models.BatchItem) (*models.ScrapeResult, error) {
	site := p.cfg.Site.Name

	if !p.limiter.Allow(site) {
		return nil, errThrottled
	}

	result := p.scraper.ScrapeProduct(ctx, item.Product.GTIN)
	if result == nil {
		result = models.NewErrorResult(models.ErrorKindExtraction, "scraper returned no result")
	}

	switch result.ErrorKind {
	case models.ErrorKindTimeout, models.ErrorKindSession:
		p.limiter.RecordFailure(site, errors.New(result.Error))
		return nil, errors.New(result.Error)
	case models.ErrorKindBlocked:
		p.limiter.RecordFailure(site, errors.New(result.Error))
		return result, nil
	default:
		p.limiter.RecordSuccess(site)
		return result, nil
	}
}

// writeBack pushes found prices to the catalog. Failed results are skipped
// by the store contract; write errors are logged and do not fail the run.
func (p *Pipeline) writeBack(ctx context.Context, products []catalog.Product, results map[string]*models.ScrapeResult) {
	if p.store == nil {
		return
	}

	for _, product := range products {
		result := results[product.GTIN]
		if result == nil {
			continue
		}
		if err := p.store.UpdatePrice(ctx, product.ID, result); err != nil {
			p.logger.Warn("Failed to update catalog record", map[string]interface{}{
				"product_id": product.ID,
				"gtin":       product.GTIN,
				"error":      err.Error(),
			})
		}
	}
}

func (p *Pipeline) startedEvent(runID, site string, total int) *events.Event {
	e := events.NewEvent(events.EventTypeRunStarted, runID)
	e.Site = site
	e.Progress = &models.Progress{Total: total}
	return e
}

func (p *Pipeline) publish(ctx context.Context, e *events.Event) {
	if p.sink == nil {
		return
	}
	p.sink.Publish(ctx, e)
}
