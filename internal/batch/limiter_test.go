package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsWithinBurst(t *testing.T) {
	cfg := testConfig(t)
	sl := NewSiteLimiter(cfg)

	for i := 0; i < 5; i++ {
		assert.True(t, sl.Allow("apodiscounter"), "request %d within burst", i)
	}
}

func TestLimiterThrottlesPastBurst(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.RateLimit = 1 // one request per minute
	sl := NewSiteLimiter(cfg)

	for i := 0; i < 5; i++ {
		sl.Allow("apodiscounter")
	}
	assert.False(t, sl.Allow("apodiscounter"))
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig(t)
	sl := NewSiteLimiter(cfg)

	err := errors.New("blocked by site")
	for i := 0; i < 5; i++ {
		sl.RecordFailure("apodiscounter", err)
	}

	assert.False(t, sl.Allow("apodiscounter"))
	assert.Equal(t, "open", sl.Stats("apodiscounter")["circuit_state"])
}

func TestCircuitHalfOpensAfterResetTimeout(t *testing.T) {
	cfg := testConfig(t)
	sl := NewSiteLimiter(cfg)

	err := errors.New("blocked by site")
	for i := 0; i < 5; i++ {
		sl.RecordFailure("apodiscounter", err)
	}

	// age the last failure past the reset window
	sl.mu.Lock()
	s := sl.sites["apodiscounter"]
	require.NotNil(t, s)
	s.lastFailTime = time.Now().Add(-time.Minute)
	sl.mu.Unlock()

	assert.True(t, sl.Allow("apodiscounter"))
	assert.Equal(t, "half-open", sl.Stats("apodiscounter")["circuit_state"])

	// a successful probe closes the breaker again
	sl.RecordSuccess("apodiscounter")
	assert.Equal(t, "closed", sl.Stats("apodiscounter")["circuit_state"])
}

func TestCircuitReopensOnFailedProbe(t *testing.T) {
	cfg := testConfig(t)
	sl := NewSiteLimiter(cfg)

	err := errors.New("blocked by site")
	for i := 0; i < 5; i++ {
		sl.RecordFailure("apodiscounter", err)
	}

	sl.mu.Lock()
	sl.sites["apodiscounter"].lastFailTime = time.Now().Add(-time.Minute)
	sl.mu.Unlock()

	require.True(t, sl.Allow("apodiscounter"))
	sl.RecordFailure("apodiscounter", err)

	assert.Equal(t, "open", sl.Stats("apodiscounter")["circuit_state"])
}

func TestLimiterSitesAreIndependent(t *testing.T) {
	cfg := testConfig(t)
	sl := NewSiteLimiter(cfg)

	err := errors.New("blocked by site")
	for i := 0; i < 5; i++ {
		sl.RecordFailure("apodiscounter", err)
	}

	assert.False(t, sl.Allow("apodiscounter"))
	assert.True(t, sl.Allow("medicaria"))
}
