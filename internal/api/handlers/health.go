package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch/internal/runs"
	"pricewatch/internal/scraper"
	"pricewatch/pkg/models"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// ReadinessHandler reports whether the service can accept runs.
func ReadinessHandler(manager *runs.Manager, sc scraper.ProductScraper) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := "ready"
		code := http.StatusOK
		checks := map[string]string{
			"api":     "ok",
			"runs":    "ok",
			"scraper": "ok",
		}
		if !sc.IsHealthy() {
			checks["scraper"] = "unavailable"
			status = "not ready"
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    time.Since(startTime),
	})
}
