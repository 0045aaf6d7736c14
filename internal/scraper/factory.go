package scraper

import (
	"fmt"

	"pricewatch/internal/browser"
	"pricewatch/internal/cache"
	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/scraper/captcha"
	"pricewatch/internal/scraper/engines/firecrawl"
	"pricewatch/internal/scraper/engines/headed"
)

// NewScraper builds the engine the config asks for. With engine "auto" the
// Firecrawl engine is preferred when an API key is present, since it avoids
// running Chrome locally; otherwise the headed engine is used.
func NewScraper(cfg *config.Config, resultCache *cache.ResultCache) (ProductScraper, error) {
	profile, err := extractor.ProfileFor(cfg.Site.Name)
	if err != nil {
		return nil, err
	}

	engine := cfg.Site.Engine
	if engine == "auto" {
		if cfg.Firecrawl.APIKey != "" {
			engine = "firecrawl"
		} else {
			engine = "headed"
		}
	}

	switch engine {
	case "headed":
		sessions := browser.NewManager(cfg)
		var solver captcha.Solver
		if cfg.Scraper.Captcha.EnableAutoSolve {
			solver = captcha.NewTwoCaptchaSolver(cfg)
		}
		return headed.NewScraper(cfg, profile, sessions, resultCache, solver), nil
	case "firecrawl":
		return firecrawl.NewScraper(cfg, profile, resultCache)
	default:
		return nil, fmt.Errorf("unsupported scraper engine: %s", engine)
	}
}
