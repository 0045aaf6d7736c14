package captcha

import (
	"context"
	"fmt"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
)

// Solver abstracts the captcha solving service.
type Solver interface {
	SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error)
	IsHealthy() bool
}

// TwoCaptchaSolver solves challenges through the 2CAPTCHA service.
type TwoCaptchaSolver struct {
	config *config.Config
	client *api2captcha.Client
	logger logging.Logger
}

// NewTwoCaptchaSolver creates a 2CAPTCHA solver from config.
func NewTwoCaptchaSolver(cfg *config.Config) *TwoCaptchaSolver {
	logger := logging.GetGlobalLogger()

	if cfg.Scraper.Captcha.APIKey == "" {
		logger.Warn("Captcha API key not configured, captcha solving disabled", map[string]interface{}{})
	}

	client := api2captcha.NewClient(cfg.Scraper.Captcha.APIKey)
	client.DefaultTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.RecaptchaTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.PollingInterval = 5

	return &TwoCaptchaSolver{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// SolveRecaptcha solves a reCAPTCHA v2 challenge and returns the response
// token to inject into the page.
func (s *TwoCaptchaSolver) SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.config.Scraper.Captcha.EnableAutoSolve {
		return "", fmt.Errorf("captcha auto-solve is disabled")
	}
	if s.config.Scraper.Captcha.APIKey == "" {
		return "", fmt.Errorf("captcha API key not configured")
	}

	s.logger.Info("Solving reCAPTCHA", map[string]interface{}{
		"site_key": siteKey,
		"page_url": pageURL,
	})

	start := time.Now()
	captcha := api2captcha.ReCaptcha{
		SiteKey: siteKey,
		Url:     pageURL,
	}

	code, _, err := s.client.Solve(captcha.ToRequest())
	if err != nil {
		return "", fmt.Errorf("failed to solve reCAPTCHA: %w", err)
	}

	s.logger.Info("reCAPTCHA solved", map[string]interface{}{
		"page_url":     pageURL,
		"solving_time": time.Since(start).String(),
	})
	return code, nil
}

// IsHealthy reports whether the solver is usable.
func (s *TwoCaptchaSolver) IsHealthy() bool {
	return s.config.Scraper.Captcha.APIKey != ""
}
