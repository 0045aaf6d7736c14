package headed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"pricewatch/internal/browser"
	"pricewatch/internal/cache"
	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/logging"
	"pricewatch/internal/scraper/captcha"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

var siteKeyPattern = regexp.MustCompile(`data-sitekey="([^"]+)"`)

var blockMarkers = []string{
	"g-recaptcha",
	"captcha-delivery",
	"access denied",
	"unusual traffic",
	"are you a robot",
	"cf-challenge",
	"请输入验证码",
}

// Scraper drives a real Chrome session against a retail site.
type Scraper struct {
	cfg      *config.Config
	profile  *extractor.Profile
	ext      *extractor.Extractor
	sessions browser.Sessions
	cache    *cache.ResultCache
	solver   captcha.Solver
	logger   logging.Logger
}

// NewScraper creates a headed engine for one site profile. The solver is
// optional; without it blocked pages fail immediately.
func NewScraper(cfg *config.Config, profile *extractor.Profile, sessions browser.Sessions, resultCache *cache.ResultCache, solver captcha.Solver) *Scraper {
	return &Scraper{
		cfg:      cfg,
		profile:  profile,
		ext:      extractor.New(profile),
		sessions: sessions,
		cache:    resultCache,
		solver:   solver,
		logger:   logging.GetGlobalLogger(),
	}
}

func (s *Scraper) Name() string {
	return "headed"
}

// ScrapeProduct resolves an identifier to price and product URL on the
// configured site. The cache is consulted before any browser work; only
// results carrying data are written back.
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
	page, err := s.sessions.Acquire(ctx)
	if err != nil {
		return models.NewErrorResult(models.ErrorKindSession, "browser session unavailable: "+err.Error())
	}
	defer page.Close()

	searchURL := s.ext.SearchURL(identifier)
	if err := page.Navigate(ctx, searchURL, s.cfg.Scraper.NavigationTimeout); err != nil {
		return navFailure(ctx, err)
	}

	html, err := page.HTML()
	if err != nil {
		return models.NewErrorResult(models.ErrorKindSession, "failed to read search page: "+err.Error())
	}

	if looksBlocked(html) {
		html, err = s.tryUnblock(ctx, page, searchURL)
		if err != nil {
			return models.NewErrorResult(models.ErrorKindBlocked, "site blocked the request: "+err.Error())
		}
	}

	cand, err := s.ext.Search(html, identifier)
	if err != nil {
		if errors.Is(err, extractor.ErrNoCandidate) {
			return &models.ScrapeResult{
				Error:     models.NoMatchError,
				ErrorKind: models.ErrorKindNoMatch,
			}
		}
		return models.NewErrorResult(models.ErrorKindExtraction, err.Error())
	}

	// the listing already showed a price; skip the detail navigation
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

	if err := page.Navigate(ctx, cand.URL, s.cfg.Scraper.NavigationTimeout); err != nil {
		return navFailure(ctx, err)
	}

	html, err = page.HTML()
	if err != nil {
		return models.NewErrorResult(models.ErrorKindSession, "failed to read product page: "+err.Error())
	}
	if looksBlocked(html) {
		return models.NewErrorResult(models.ErrorKindBlocked, "site blocked the product page")
	}

	price, name, err := s.ext.ExtractDetail(html)
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

// tryUnblock attempts to solve an on-page reCAPTCHA and reload. Returns the
// fresh HTML on success.
func (s *Scraper) tryUnblock(ctx context.Context, page browser.Page, pageURL string) (string, error) {
	if s.solver == nil || !s.cfg.Scraper.Captcha.EnableAutoSolve {
		return "", errors.New("captcha solving not available")
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}

	match := siteKeyPattern.FindStringSubmatch(html)
	if match == nil {
		return "", errors.New("no captcha site key on page")
	}

	token, err := s.solver.SolveRecaptcha(ctx, match[1], pageURL)
	if err != nil {
		return "", err
	}

	inject := fmt.Sprintf(`() => {
		const el = document.getElementById('g-recaptcha-response');
		if (el) { el.innerHTML = '%s'; }
		const form = document.querySelector('form');
		if (form) { form.submit(); }
	}`, token)
	if err := page.Eval(inject); err != nil {
		return "", err
	}

	if err := page.Navigate(ctx, pageURL, s.cfg.Scraper.NavigationTimeout); err != nil {
		return "", err
	}

	html, err = page.HTML()
	if err != nil {
		return "", err
	}
	if looksBlocked(html) {
		return "", errors.New("still blocked after captcha solve")
	}
	return html, nil
}

// ClearCache drops all cached results.
func (s *Scraper) ClearCache() {
	s.cache.Purge()
}

// IsHealthy reports whether the engine can take lookups. The browser is
// launched lazily, so readiness only requires a session manager.
func (s *Scraper) IsHealthy() bool {
	return s.sessions != nil
}

// Cleanup shuts the shared browser down.
func (s *Scraper) Cleanup() error {
	return s.sessions.Shutdown()
}

func navFailure(ctx context.Context, err error) *models.ScrapeResult {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return models.NewErrorResult(models.ErrorKindTimeout, "navigation timed out: "+msg)
	}
	return models.NewErrorResult(models.ErrorKindSession, "navigation failed: "+msg)
}

func looksBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
