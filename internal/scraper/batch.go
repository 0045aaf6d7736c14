package scraper

import (
	"context"
	"errors"

	"pricewatch/internal/batch"
	"pricewatch/internal/config"
	"pricewatch/pkg/models"
)

// ScrapeProducts fans one engine out over many identifiers with the same
// pacing and retry discipline as a pipeline run. Results are keyed by
// identifier; every input identifier appears in the map.
func ScrapeProducts(ctx context.Context, cfg *config.Config, sc ProductScraper, identifiers []string) map[string]*models.ScrapeResult {
	items := make([]models.BatchItem, len(identifiers))
	for i, id := range identifiers {
		items[i] = models.BatchItem{
			ID:      id,
			Product: models.ProductRef{GTIN: id},
		}
	}

	processor := batch.NewProcessor(cfg)
	results := processor.Process(ctx, items, func(ctx context.Context, item models.BatchItem) (*models.ScrapeResult, error) {
		res := sc.ScrapeProduct(ctx, item.Product.GTIN)
		if res.Failed() && res.ErrorKind.Retryable() {
			return nil, errors.New(res.Error)
		}
		return res, nil
	})

	out := make(map[string]*models.ScrapeResult, len(results))
	for _, br := range results {
		if br.Data != nil {
			out[br.ID] = br.Data
			continue
		}
		kind := models.ErrorKindSession
		if ctx.Err() != nil {
			kind = models.ErrorKindTimeout
		}
		out[br.ID] = models.NewErrorResult(kind, br.Error)
	}
	return out
}
