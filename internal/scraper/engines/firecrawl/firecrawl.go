package firecrawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mendableai/firecrawl-go"

	"pricewatch/internal/cache"
	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/logging"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

// fetcher is the slice of the Firecrawl SDK the engine uses.
type fetcher interface {
	ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)
}

// Scraper fetches pages through the Firecrawl API instead of a local
// browser. Useful when the site blocks datacenter IPs and requests have to
// leave through Firecrawl's proxy fleet.
type Scraper struct {
	cfg     *config.Config
	profile *extractor.Profile
	ext     *extractor.Extractor
	app     fetcher
	cache   *cache.ResultCache
	logger  logging.Logger

	retryDelay time.Duration
}

// NewScraper creates a Firecrawl-backed engine for one site profile.
func NewScraper(cfg *config.Config, profile *extractor.Profile, resultCache *cache.ResultCache) (*Scraper, error) {
	if cfg.Firecrawl.APIKey == "" {
		return nil, errors.New("firecrawl API key not configured")
	}

	// hand-built configs may skip the defaults pass, so fall back to the
	// public API endpoint here too
	apiURL := utils.GetStringOrDefault(cfg.Firecrawl.APIURL, "https://api.firecrawl.dev")
	app, err := firecrawl.NewFirecrawlApp(cfg.Firecrawl.APIKey, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firecrawl: %w", err)
	}

	return &Scraper{
		cfg:        cfg,
		profile:    profile,
		ext:        extractor.New(profile),
		app:        app,
		cache:      resultCache,
		logger:     logging.GetGlobalLogger(),
		retryDelay: time.Second,
	}, nil
}

func (s *Scraper) Name() string {
	return "firecrawl"
}

// ScrapeProduct resolves an identifier to price and product URL via the
// Firecrawl API. Same contract as the headed engine: failures come back
// inside the result.
func (s *Scraper) ScrapeProduct(ctx context.Context, identifier string) (result *models.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scrape panicked", map[string]interface{}{
				"identifier": identifier,
				"panic":      fmt.Sprintf("%v", r),
			})
			result = models.NewErrorResult(models.ErrorKindExtraction, fmt.Sprintf("unexpected failure: %v", r))
		}
	}()

	if !utils.IsValidGTIN(identifier) {
		return models.NewErrorResult(models.ErrorKindExtraction, "invalid identifier: "+identifier)
	}

	if cached, ok := s.cache.Get(identifier); ok {
		s.logger.Debug("Cache hit", map[string]interface{}{
			"identifier": identifier,
		})
		return cached
	}

	result = s.scrape(ctx, identifier)
	s.cache.Set(identifier, result)
	return result
}

func (s *Scraper) scrape(ctx context.Context, identifier string) *models.ScrapeResult {
	searchHTML, failure := s.fetch(ctx, s.ext.SearchURL(identifier))
	if failure != nil {
		return failure
	}

	cand, err := s.ext.Search(searchHTML, identifier)
	if err != nil {
		if errors.Is(err, extractor.ErrNoCandidate) {
			return &models.ScrapeResult{
				Error:     models.NoMatchError,
				ErrorKind: models.ErrorKindNoMatch,
			}
		}
		return models.NewErrorResult(models.ErrorKindExtraction, err.Error())
	}

	// a price on the result card saves a second API credit
	if cand.Price != nil {
		s.logger.Info("Product scraped", map[string]interface{}{
			"identifier": identifier,
			"site":       s.profile.Name,
			"price":      utils.FormatPrice(cand.Price),
			"url":        cand.URL,
		})
		return &models.ScrapeResult{
			Price:       cand.Price,
			ProductURL:  cand.URL,
			ProductName: cand.Name,
		}
	}

	detailHTML, failure := s.fetch(ctx, cand.URL)
	if failure != nil {
		return failure
	}

	price, name, err := s.ext.ExtractDetail(detailHTML)
	if err != nil {
		return models.NewErrorResult(models.ErrorKindExtraction, err.Error())
	}

	s.logger.Info("Product scraped", map[string]interface{}{
		"identifier": identifier,
		"site":       s.profile.Name,
		"price":      utils.FormatPrice(price),
		"url":        cand.URL,
	})

	return &models.ScrapeResult{
		Price:       price,
		ProductURL:  cand.URL,
		ProductName: name,
	}
}

// fetch retrieves one page through Firecrawl, retrying transient API
// failures with linear backoff.
func (s *Scraper) fetch(ctx context.Context, url string) (string, *models.ScrapeResult) {
	params := &firecrawl.ScrapeParams{
		Formats: []string{"html"},
	}

	maxRetries := s.cfg.Firecrawl.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var doc *firecrawl.FirecrawlDocument
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", models.NewErrorResult(models.ErrorKindTimeout, "canceled: "+ctxErr.Error())
		}

		doc, err = s.app.ScrapeURL(url, params)
		if err == nil {
			break
		}

		s.logger.Warn("Firecrawl scrape attempt failed", map[string]interface{}{
			"attempt": attempt,
			"url":     url,
			"error":   err.Error(),
		})

		if attempt < maxRetries {
			select {
			case <-time.After(time.Duration(attempt) * s.retryDelay):
			case <-ctx.Done():
			}
		}
	}
	if err != nil {
		return "", apiFailure(err)
	}

	if doc == nil || doc.HTML == "" {
		return "", models.NewErrorResult(models.ErrorKindExtraction, "firecrawl returned no HTML for "+url)
	}
	return doc.HTML, nil
}

// apiFailure maps a Firecrawl API error onto the failure taxonomy.
func apiFailure(err error) *models.ScrapeResult {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return models.NewErrorResult(models.ErrorKindTimeout, err.Error())
	case strings.Contains(msg, "403") || strings.Contains(msg, "429") || strings.Contains(msg, "blocked"):
		return models.NewErrorResult(models.ErrorKindBlocked, err.Error())
	default:
		return models.NewErrorResult(models.ErrorKindSession, err.Error())
	}
}

// ClearCache drops all cached results.
func (s *Scraper) ClearCache() {
	s.cache.Purge()
}

// IsHealthy reports whether the engine can reach the Firecrawl API.
func (s *Scraper) IsHealthy() bool {
	return s.app != nil
}

// Cleanup is a no-op; Firecrawl holds no local resources.
func (s *Scraper) Cleanup() error {
	return nil
}
