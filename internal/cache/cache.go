package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pricewatch/pkg/models"
)

// ResultCache stores scrape results keyed by product identifier so repeated
// lookups within the TTL window skip the browser entirely.
type ResultCache struct {
	lru *expirable.LRU[string, *models.ScrapeResult]
}

// New creates a result cache holding up to size entries, each evicted after ttl.
func New(size int, ttl time.Duration) *ResultCache {
	if size < 1 {
		size = 1
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, *models.ScrapeResult](size, nil, ttl),
	}
}

// Get returns the cached result for identifier, if present and not expired.
func (c *ResultCache) Get(identifier string) (*models.ScrapeResult, bool) {
	return c.lru.Get(identifier)
}

// Set stores a result. Only results that carry a price or a product URL are
// worth keeping; error and empty results are dropped so the next request
// retries the site.
func (c *ResultCache) Set(identifier string, result *models.ScrapeResult) {
	if result == nil || !result.Found() {
		return
	}
	c.lru.Add(identifier, result)
}

// Purge drops all entries.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}
