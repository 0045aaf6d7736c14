package scraper

import (
	"context"

	"pricewatch/pkg/models"
)

// ProductScraper looks up one product on a competitor site. Every failure
// mode comes back inside the ScrapeResult; the method never panics and
// never returns a Go error, so one bad product can never abort a run.
type ProductScraper interface {
	// ScrapeProduct resolves a GTIN/EAN to price and product URL.
	ScrapeProduct(ctx context.Context, identifier string) *models.ScrapeResult

	// Name identifies the engine for logging.
	Name() string

	// ClearCache drops all cached results for this engine.
	ClearCache()

	// IsHealthy reports whether the engine is ready to take lookups.
	IsHealthy() bool

	// Cleanup releases browser processes and other engine resources.
	Cleanup() error
}
