package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidGTIN(t *testing.T) {
	assert.True(t, IsValidGTIN("40058087"))       // EAN-8
	assert.True(t, IsValidGTIN("4005808730735"))  // EAN-13
	assert.True(t, IsValidGTIN("04005808730735")) // GTIN-14

	assert.False(t, IsValidGTIN(""))
	assert.False(t, IsValidGTIN("1234567"))         // too short
	assert.False(t, IsValidGTIN("123456789012345")) // too long
	assert.False(t, IsValidGTIN("40058O8730735"))   // letter O
	assert.False(t, IsValidGTIN("4005808-730735"))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "", FormatPrice(nil))

	p := 3.99
	assert.Equal(t, "3.99", FormatPrice(&p))

	p = 1299
	assert.Equal(t, "1299.00", FormatPrice(&p))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ms", FormatDuration(500*time.Millisecond))
	assert.Equal(t, "2.50s", FormatDuration(2500*time.Millisecond))
	assert.Equal(t, "1.5m", FormatDuration(90*time.Second))
	assert.Equal(t, "2.0h", FormatDuration(2*time.Hour))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "Nivea Creme 75ml", NormalizeWhitespace("  Nivea \n \t Creme   75ml "))
	assert.Equal(t, "", NormalizeWhitespace("   "))
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", TruncateForLog("short", 10))
	assert.Equal(t, "abcde...", TruncateForLog("abcdefghij", 5))
}

func TestContains(t *testing.T) {
	engines := []string{"headed", "firecrawl", "auto"}
	assert.True(t, Contains(engines, "firecrawl"))
	assert.False(t, Contains(engines, "playwright"))
	assert.False(t, Contains(nil, "headed"))
}

func TestGetStringOrDefault(t *testing.T) {
	assert.Equal(t, "set", GetStringOrDefault("set", "fallback"))
	assert.Equal(t, "fallback", GetStringOrDefault("", "fallback"))
}

func TestGenerateRequestIDUnique(t *testing.T) {
	assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())
}
