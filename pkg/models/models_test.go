package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindRetryable(t *testing.T) {
	assert.True(t, ErrorKindTimeout.Retryable())
	assert.True(t, ErrorKindSession.Retryable())

	assert.False(t, ErrorKindNone.Retryable())
	assert.False(t, ErrorKindNoMatch.Retryable())
	assert.False(t, ErrorKindExtraction.Retryable())
	assert.False(t, ErrorKindBlocked.Retryable())
}

func TestScrapeResultFound(t *testing.T) {
	assert.True(t, (&ScrapeResult{Price: Float64Ptr(3.99)}).Found())
	assert.True(t, (&ScrapeResult{ProductURL: "https://example.com/p/1"}).Found())

	assert.False(t, (&ScrapeResult{}).Found())
	assert.False(t, (&ScrapeResult{Error: "boom", ErrorKind: ErrorKindSession}).Found())

	var nilResult *ScrapeResult
	assert.False(t, nilResult.Found())
}

func TestScrapeResultFailed(t *testing.T) {
	assert.True(t, (&ScrapeResult{Error: NoMatchError, ErrorKind: ErrorKindNoMatch}).Failed())

	var nilResult *ScrapeResult
	assert.True(t, nilResult.Failed())

	assert.False(t, (&ScrapeResult{Price: Float64Ptr(1.49)}).Failed())
}

func TestNewErrorResult(t *testing.T) {
	r := NewErrorResult(ErrorKindTimeout, "navigation timed out")
	assert.True(t, r.Failed())
	assert.False(t, r.Found())
	assert.Equal(t, ErrorKindTimeout, r.ErrorKind)
	assert.Equal(t, "navigation timed out", r.Error)
}

func TestSummarize(t *testing.T) {
	results := map[string]*ScrapeResult{
		"a": {Price: Float64Ptr(3.99), ProductURL: "https://example.com/a"},
		"b": {ProductURL: "https://example.com/b"},
		"c": {Error: NoMatchError, ErrorKind: ErrorKindNoMatch},
		"d": nil,
	}

	s := Summarize(results)
	assert.Equal(t, 4, s.TotalProcessed)
	assert.Equal(t, 1, s.PricesFound)
	assert.Equal(t, 2, s.URLsFound)
	assert.Equal(t, 2, s.Errored)
	assert.InDelta(t, 25.0, s.SuccessRate, 0.01)
	assert.Equal(t, "25.0%", s.FormatSuccessRate())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(map[string]*ScrapeResult{})
	assert.Equal(t, 0, s.TotalProcessed)
	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, "0.0%", s.FormatSuccessRate())
}
