package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SelectiveTimeoutConfig applies a short timeout to most endpoints and a
// longer one to /api/v1/scrape, which waits on a live browser.
func SelectiveTimeoutConfig(defaultTimeout, scrapeTimeout time.Duration) echo.MiddlewareFunc {
	standard := middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: defaultTimeout,
	})
	long := middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: scrapeTimeout,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		standardNext := standard(next)
		longNext := long(next)
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Path(), "/api/v1/scrape") {
				return longNext(c)
			}
			return standardNext(c)
		}
	}
}
