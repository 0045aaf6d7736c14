package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pricewatch/pkg/models"
)

func TestCacheStoresFoundResults(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("4005808730735", &models.ScrapeResult{
		Price:      models.Float64Ptr(3.99),
		ProductURL: "https://example.com/p/4005808730735",
	})

	got, ok := c.Get("4005808730735")
	assert.True(t, ok)
	assert.Equal(t, 3.99, *got.Price)
}

func TestCacheStoresURLOnlyResults(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("4005808730735", &models.ScrapeResult{
		ProductURL: "https://example.com/p/4005808730735",
	})

	_, ok := c.Get("4005808730735")
	assert.True(t, ok)
}

func TestCacheRejectsErrorResults(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("4005808730735", models.NewErrorResult(models.ErrorKindTimeout, "navigation timed out"))
	c.Set("4005808730736", &models.ScrapeResult{Error: models.NoMatchError, ErrorKind: models.ErrorKindNoMatch})
	c.Set("4005808730737", &models.ScrapeResult{})
	c.Set("4005808730738", nil)

	assert.Equal(t, 0, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c := New(10, 20*time.Millisecond)

	c.Set("4005808730735", &models.ScrapeResult{Price: models.Float64Ptr(1.49)})
	_, ok := c.Get("4005808730735")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("4005808730735")
	assert.False(t, ok)
}

func TestCachePurge(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("4005808730735", &models.ScrapeResult{Price: models.Float64Ptr(1.49)})

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
