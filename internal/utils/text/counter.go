// Package text holds the small string helpers shared by extraction and reporting.
// Lengths are measured in runes so multi-byte pages are judged like ASCII ones.
package text

import (
	"strings"
	"unicode/utf8"
)

// CountRunes counts Unicode characters, not bytes.
//
//	CountRunes("hello")   // 5
//	CountRunes("日本語")   // 3
//	CountRunes("Hello👋") // 6
func CountRunes(s string) int {
	return utf8.RuneCountInString(s)
}

// CollapseWhitespace trims s and replaces every run of whitespace, newlines
// included, with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most max runes, appending "..." when it cut anything.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if CountRunes(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}
