package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
	"pricewatch/internal/scraper"
	"pricewatch/pkg/models"
)

var validate = validator.New()

func requestID(c echo.Context) string {
	if id, ok := c.Get("request_id").(string); ok {
		return id
	}
	return ""
}

// ScrapeHandler performs a synchronous single-identifier lookup. Intended
// for spot checks and debugging; bulk work goes through runs.
func ScrapeHandler(cfg *config.Config, sc scraper.ProductScraper) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		reqID := requestID(c)

		var req models.ScrapeRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request body: " + err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   "Identifier must be 8-14 digits: " + err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		timeout := req.Timeout
		if timeout <= 0 {
			timeout = cfg.Scraper.NavigationTimeout * 2
		}
		ctx, cancel := withTimeout(c, timeout)
		defer cancel()

		start := time.Now()
		result := sc.ScrapeProduct(ctx, req.Identifier)
		elapsed := time.Since(start)

		logger.Info("Scrape request handled", map[string]interface{}{
			"request_id": reqID,
			"identifier": req.Identifier,
			"duration":   elapsed.String(),
			"found":      result.Found(),
		})

		return c.JSON(http.StatusOK, models.ScrapeResponse{
			Success:        !result.Failed(),
			Identifier:     req.Identifier,
			Result:         result,
			Error:          result.Error,
			ProcessingTime: elapsed,
			Engine:         sc.Name(),
			RequestID:      reqID,
		})
	}
}

// BatchScrapeHandler looks up several identifiers in one synchronous call,
// paced like a pipeline run. Capped small; large sets belong in runs.
func BatchScrapeHandler(cfg *config.Config, sc scraper.ProductScraper) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		reqID := requestID(c)

		var req models.BatchScrapeRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request body: " + err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   "Identifiers must be 1-50 codes of 8-14 digits: " + err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		ctx, cancel := withTimeout(c, time.Duration(len(req.Identifiers))*cfg.Scraper.NavigationTimeout*2)
		defer cancel()

		start := time.Now()
		results := scraper.ScrapeProducts(ctx, cfg, sc, req.Identifiers)
		elapsed := time.Since(start)

		summary := models.Summarize(results)
		logger.Info("Batch scrape request handled", map[string]interface{}{
			"request_id": reqID,
			"count":      len(req.Identifiers),
			"duration":   elapsed.String(),
			"found":      summary.PricesFound,
		})

		return c.JSON(http.StatusOK, models.BatchScrapeResponse{
			Results:        results,
			Summary:        summary,
			ProcessingTime: elapsed,
			Engine:         sc.Name(),
			RequestID:      reqID,
		})
	}
}

// ClearCacheHandler drops the engine's result cache so the next lookups hit
// the network. Used after competitor price changes are known to have
// happened.
func ClearCacheHandler(sc scraper.ProductScraper) echo.HandlerFunc {
	return func(c echo.Context) error {
		sc.ClearCache()
		logging.GetGlobalLogger().Info("Result cache cleared", map[string]interface{}{
			"request_id": requestID(c),
			"engine":     sc.Name(),
		})
		return c.JSON(http.StatusOK, map[string]string{"status": "cache cleared"})
	}
}
