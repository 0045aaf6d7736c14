package catalog

import (
	"context"

	"pricewatch/pkg/models"
)

// Product is one catalog item eligible for a competitor price check.
type Product struct {
	ID              string   `json:"id"`
	GTIN            string   `json:"gtin"`
	Name            string   `json:"name"`
	CompetitorPrice *float64 `json:"competitor_price,omitempty"`
	CompetitorURL   string   `json:"competitor_url,omitempty"`
	PriceCheckedAt  string   `json:"price_checked_at,omitempty"`
}

// Store is the catalog the pipeline reads products from and writes
// competitor prices back to.
type Store interface {
	// FetchProducts returns items due for a price check, oldest check first.
	FetchProducts(ctx context.Context, limit int) ([]Product, error)

	// UpdatePrice writes a scrape outcome back. Results without data leave
	// the catalog record untouched; a failed scrape must never erase a
	// previously known price.
	UpdatePrice(ctx context.Context, productID string, result *models.ScrapeResult) error
}
