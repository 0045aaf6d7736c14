package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

// HTTPClient talks to the catalog service over its JSON API.
type HTTPClient struct {
	baseURL    string
	apiToken   string
	client     *http.Client
	maxRetries int
	logger     logging.Logger

	retryDelay time.Duration
	now        func() time.Time
}

// NewHTTPClient creates a catalog client from config.
func NewHTTPClient(cfg *config.Config) (*HTTPClient, error) {
	if cfg.Catalog.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}

	maxRetries := cfg.Catalog.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &HTTPClient{
		baseURL:    cfg.Catalog.BaseURL,
		apiToken:   cfg.Catalog.APIToken,
		client:     &http.Client{Timeout: cfg.Catalog.Timeout},
		maxRetries: maxRetries,
		logger:     logging.GetGlobalLogger(),
		retryDelay: time.Second,
		now:        time.Now,
	}, nil
}

// FetchProducts returns up to limit products due for a price check.
func (c *HTTPClient) FetchProducts(ctx context.Context, limit int) ([]Product, error) {
	url := fmt.Sprintf("%s/api/products?due=true&limit=%d", c.baseURL, limit)

	body, err := c.doWithRetry(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	c.logger.Info("Fetched products from catalog", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

// priceUpdate is the write-back payload. The catalog stores the price as a
// plain decimal string and the URL as a string, both empty when absent. The
// timestamp records when the competitor site was checked, not when the
// catalog was written.
type priceUpdate struct {
	CompetitorPrice string `json:"competitor_price"`
	CompetitorURL   string `json:"competitor_url"`
	PriceCheckedAt  string `json:"price_checked_at"`
}

// UpdatePrice writes a scrape outcome back to the catalog. Error and empty
// results are skipped so a bad scrape never clobbers known data.
func (c *HTTPClient) UpdatePrice(ctx context.Context, productID string, result *models.ScrapeResult) error {
	if result == nil || !result.Found() {
		c.logger.Debug("Skipping catalog update for result without data", map[string]interface{}{
			"product_id": productID,
		})
		return nil
	}

	payload, err := json.Marshal(priceUpdate{
		CompetitorPrice: utils.FormatPrice(result.Price),
		CompetitorURL:   result.ProductURL,
		PriceCheckedAt:  c.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode price update: %w", err)
	}

	url := fmt.Sprintf("%s/api/products/%s", c.baseURL, productID)
	if _, err := c.doWithRetry(ctx, http.MethodPatch, url, payload); err != nil {
		return fmt.Errorf("failed to update product %s: %w", productID, err)
	}

	c.logger.Debug("Catalog record updated", map[string]interface{}{
		"product_id": productID,
	})
	return nil
}

// doWithRetry performs one HTTP call, retrying network errors and 5xx
// responses with linear backoff. 4xx responses fail immediately.
func (c *HTTPClient) doWithRetry(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return body, nil
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("catalog returned status %d", resp.StatusCode)
			default:
				return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
			}
		}

		if attempt < c.maxRetries {
			c.logger.Warn("Catalog request failed, retrying", map[string]interface{}{
				"url":     url,
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
			select {
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("all retries exhausted: %w", lastErr)
}
