// Package utils provides number helpers shared by the report patcher.
package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Round1 rounds to one decimal place using the exact binary value of x,
// so ties resolve the same way the report generator formatted them
// (0.25 → 0.2, 0.35 → 0.3 because 0.35 is stored slightly below).
func Round1(x float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	return v
}

// FormatDecimal1 formats x with exactly one decimal (e.g. 45 → "45.0").
func FormatDecimal1(x float64) string {
	return strconv.FormatFloat(x, 'f', 1, 64)
}

// FormatPct formats x as a one-decimal percentage ("57.1%").
func FormatPct(x float64) string {
	return FormatDecimal1(x) + "%"
}

// FormatWhole formats x without trailing zeros (100.0 → "100", 99.5 → "99.5").
func FormatWhole(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// ParseDecimal parses an unsigned or negative decimal such as "43.2" or
// "-14.3". A trailing "%" is ignored.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return v, nil
}

// Clamp returns min(x, limit). Values below the limit pass through.
func Clamp(x, limit float64) float64 {
	if x > limit {
		return limit
	}
	return x
}
