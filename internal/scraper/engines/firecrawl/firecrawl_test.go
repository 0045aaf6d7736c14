package firecrawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mendableai/firecrawl-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/cache"
	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/logging"
	"pricewatch/pkg/models"
)

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls map[string]int
}

func (f *fakeFetcher) ScrapeURL(url string, _ *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return &firecrawl.FirecrawlDocument{HTML: html}, nil
}

const (
	searchURL = "https://www.medicaria.de/search?q=4005808730735"
	detailURL = "https://www.medicaria.de/artikel/nivea-creme-4005808730735"
)

func newTestScraper(t *testing.T, f *fakeFetcher) *Scraper {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Site.Name = "medicaria"
	cfg.Firecrawl.MaxRetries = 1

	profile, err := extractor.ProfileFor("medicaria")
	require.NoError(t, err)

	return &Scraper{
		cfg:        cfg,
		profile:    profile,
		ext:        extractor.New(profile),
		app:        f,
		cache:      cache.New(16, time.Minute),
		logger:     logging.GetGlobalLogger(),
		retryDelay: time.Millisecond,
	}
}

func productPages() map[string]string {
	return map[string]string{
		searchURL: `<div class="product-listing">
			<a class="product-card__link" href="/artikel/nivea-creme-4005808730735">Nivea Creme</a>
		</div>`,
		detailURL: `<h1 class="product-title">Nivea Creme 75ml</h1>
			<div class="product-price">3,99 €</div>`,
	}
}

func TestScrapeProductEndToEnd(t *testing.T) {
	s := newTestScraper(t, &fakeFetcher{pages: productPages()})

	result := s.ScrapeProduct(context.Background(), "4005808730735")

	require.NotNil(t, result)
	assert.Empty(t, result.Error)
	require.NotNil(t, result.Price)
	assert.InDelta(t, 3.99, *result.Price, 0.001)
	assert.Equal(t, detailURL, result.ProductURL)
	assert.Equal(t, "Nivea Creme 75ml", result.ProductName)
}

func TestScrapeProductNoMatch(t *testing.T) {
	s := newTestScraper(t, &fakeFetcher{pages: map[string]string{
		searchURL: `<div class="product-listing">
			<a class="product-card__link" href="/artikel/unrelated-999">Unrelated</a>
		</div>`,
	}})

	result := s.ScrapeProduct(context.Background(), "4005808730735")

	assert.Equal(t, models.NoMatchError, result.Error)
	assert.Equal(t, models.ErrorKindNoMatch, result.ErrorKind)
}

func TestScrapeProductAPITimeout(t *testing.T) {
	s := newTestScraper(t, &fakeFetcher{errs: map[string]error{
		searchURL: errors.New("request timeout after 60s"),
	}})

	result := s.ScrapeProduct(context.Background(), "4005808730735")

	assert.Equal(t, models.ErrorKindTimeout, result.ErrorKind)
	assert.True(t, result.ErrorKind.Retryable())
}

func TestScrapeProductBlockedByAPI(t *testing.T) {
	s := newTestScraper(t, &fakeFetcher{errs: map[string]error{
		searchURL: errors.New("unexpected status code: 403"),
	}})

	result := s.ScrapeProduct(context.Background(), "4005808730735")

	assert.Equal(t, models.ErrorKindBlocked, result.ErrorKind)
	assert.False(t, result.ErrorKind.Retryable())
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{
		searchURL: errors.New("connection reset"),
	}}
	s := newTestScraper(t, f)
	s.cfg.Firecrawl.MaxRetries = 3

	result := s.ScrapeProduct(context.Background(), "4005808730735")

	assert.Equal(t, models.ErrorKindSession, result.ErrorKind)
	assert.Equal(t, 3, f.calls[searchURL])
}

func TestScrapeProductCardPriceSavesFetch(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		searchURL: `<div class="product-card">
			<a class="product-card__link" href="/artikel/nivea-creme-4005808730735">Nivea Creme</a>
			<span class="product-price">3,99 €</span>
		</div>`,
	}}
	s := newTestScraper(t, f)

	result := s.ScrapeProduct(context.Background(), "4005808730735")

	require.Empty(t, result.Error)
	require.NotNil(t, result.Price)
	assert.InDelta(t, 3.99, *result.Price, 0.001)
	assert.Equal(t, 0, f.calls[detailURL])
}

func TestScrapeProductCaches(t *testing.T) {
	f := &fakeFetcher{pages: productPages()}
	s := newTestScraper(t, f)

	first := s.ScrapeProduct(context.Background(), "4005808730735")
	require.Empty(t, first.Error)
	second := s.ScrapeProduct(context.Background(), "4005808730735")

	require.NotNil(t, second.Price)
	assert.Equal(t, 1, f.calls[searchURL])
}
