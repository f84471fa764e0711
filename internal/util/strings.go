// Package util holds small helpers shared by several packages.
package util

import "unicode/utf8"

// Truncate returns at most n runes of s. It never splits a multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
