package routes

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"pricewatch/internal/api/handlers"
	"pricewatch/internal/api/middleware"
	"pricewatch/internal/config"
	"pricewatch/internal/runs"
	"pricewatch/internal/scraper"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, sc scraper.ProductScraper, manager *runs.Manager) {
	e.HTTPErrorHandler = handlers.ErrorHandler(e)
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	// scrape waits on a live browser; everything else answers fast
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, 2*time.Minute))

	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(manager, sc))
		health.GET("/live", handlers.LivenessHandler)
	}

	v1 := e.Group("/api/v1")
	{
		v1.POST("/scrape", handlers.ScrapeHandler(cfg, sc))
		v1.POST("/scrape/batch", handlers.BatchScrapeHandler(cfg, sc))
		v1.DELETE("/cache", handlers.ClearCacheHandler(sc))

		v1.POST("/runs", handlers.CreateRunHandler(manager))
		v1.GET("/runs", handlers.ListRunsHandler(manager))
		v1.GET("/runs/:id", handlers.GetRunHandler(manager))
	}
}
