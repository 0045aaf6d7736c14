package batch

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
)

// CircuitState represents the state of a site's circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type siteState struct {
	limiter  *rate.Limiter
	requests int64
	failures int64

	// circuit breaker
	maxFailures  int
	resetTimeout time.Duration
	failureCount int
	lastFailTime time.Time
	state        CircuitState
}

// SiteLimiter throttles outbound scraping per site and trips a circuit
// breaker when a site keeps failing, so a blocked or broken site does not
// burn the whole run's time budget.
type SiteLimiter struct {
	cfg    *config.Config
	sites  map[string]*siteState
	mu     sync.Mutex
	logger logging.Logger
}

// NewSiteLimiter creates a per-site rate limiter and circuit breaker.
func NewSiteLimiter(cfg *config.Config) *SiteLimiter {
	return &SiteLimiter{
		cfg:    cfg,
		sites:  make(map[string]*siteState),
		logger: logging.GetGlobalLogger(),
	}
}

// Allow reports whether a request to the site may proceed right now.
func (sl *SiteLimiter) Allow(site string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	s := sl.getSite(strings.ToLower(site))

	if !sl.circuitAllows(s) {
		sl.logger.Debug("Request rejected by circuit breaker", map[string]interface{}{
			"site": site,
		})
		return false
	}

	if !s.limiter.Allow() {
		sl.logger.Debug("Request rejected by rate limiter", map[string]interface{}{
			"site": site,
		})
		return false
	}

	s.requests++
	return true
}

// RecordSuccess resets the breaker after a half-open probe succeeds.
func (sl *SiteLimiter) RecordSuccess(site string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	s := sl.getSite(strings.ToLower(site))
	if s.state == CircuitHalfOpen {
		s.state = CircuitClosed
		s.failureCount = 0
		sl.logger.Info("Circuit breaker closed after successful request", map[string]interface{}{
			"site": site,
		})
	}
}

// RecordFailure counts a failed request and opens the breaker past the
// failure threshold.
func (sl *SiteLimiter) RecordFailure(site string, err error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	s := sl.getSite(strings.ToLower(site))
	s.failures++
	s.failureCount++
	s.lastFailTime = time.Now()

	if s.state == CircuitHalfOpen {
		s.state = CircuitOpen
		sl.logger.Warn("Circuit breaker reopened after failed probe", map[string]interface{}{
			"site": site,
		})
		return
	}

	if s.failureCount >= s.maxFailures && s.state == CircuitClosed {
		s.state = CircuitOpen
		sl.logger.Warn("Circuit breaker opened due to failures", map[string]interface{}{
			"site":     site,
			"failures": s.failureCount,
			"error":    err.Error(),
		})
	}
}

// Stats returns request counters and breaker state for a site.
func (sl *SiteLimiter) Stats(site string) map[string]interface{} {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	s := sl.getSite(strings.ToLower(site))
	return map[string]interface{}{
		"requests":      s.requests,
		"failures":      s.failures,
		"circuit_state": s.state.String(),
		"failure_count": s.failureCount,
	}
}

func (sl *SiteLimiter) getSite(site string) *siteState {
	if s, ok := sl.sites[site]; ok {
		return s
	}

	// requests per minute converted to requests per second
	rps := rate.Limit(float64(sl.cfg.Scraper.RateLimit) / 60.0)
	s := &siteState{
		limiter:      rate.NewLimiter(rps, 5),
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
		state:        CircuitClosed,
	}
	sl.sites[site] = s

	sl.logger.Debug("Created site limiter", map[string]interface{}{
		"site": site,
		"rate": float64(rps),
	})
	return s
}

func (sl *SiteLimiter) circuitAllows(s *siteState) bool {
	switch s.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Since(s.lastFailTime) > s.resetTimeout {
			s.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}
