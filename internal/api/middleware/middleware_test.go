package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidationSetsRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestValidation())
	e.GET("/ping", func(c echo.Context) error {
		id, _ := c.Get("request_id").(string)
		assert.NotEmpty(t, id)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestValidationRejectsOversizedBody(t *testing.T) {
	e := echo.New()
	e.Use(RequestValidation())
	e.POST("/scrape", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	body := strings.NewReader(strings.Repeat("x", 2*1024*1024))
	req := httptest.NewRequest(http.MethodPost, "/scrape", body)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSelectiveTimeoutLetsSlowScrapeFinish(t *testing.T) {
	e := echo.New()
	e.Use(SelectiveTimeoutConfig(20*time.Millisecond, time.Second))
	slow := func(c echo.Context) error {
		time.Sleep(60 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	}
	e.POST("/api/v1/scrape", slow)
	e.GET("/api/v1/runs", slow)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORSConfig())
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "https://warehouse.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
