// Package hts turns storefront products into Harmonized Tariff Schedule
// determinations: feature extraction, the model-backed classifier with its
// fallback result, and the confidence disposition policy.
package hts

import (
	"regexp"
	"strings"
)

// FallbackCode is stored when no valid classification could be obtained.
// It is never pushed to a storefront.
const FallbackCode = "9999.99.9999"

var codePattern = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{4}$`)

// ValidateCode reports whether code has the 10-digit DDDD.DD.DDDD form.
func ValidateCode(code string) bool {
	return codePattern.MatchString(code)
}

// Digits returns code without separators ("6912.00.4810" -> "6912004810"),
// the form shipping label systems expect.
func Digits(code string) string {
	return strings.ReplaceAll(code, ".", "")
}

// IsFallbackCode reports whether code is the unclassified placeholder.
func IsFallbackCode(code string) bool {
	return code == FallbackCode
}
