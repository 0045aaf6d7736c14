package extractor

import (
	"strconv"
	"strings"
)

// ParsePrice normalizes a raw price string as shown on retail pages into a
// float. European notation uses the comma as decimal separator and the dot
// for thousands ("1.299,00"), so when a comma is present dots are stripped
// before converting. Returns false when no usable number remains.
func ParsePrice(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
