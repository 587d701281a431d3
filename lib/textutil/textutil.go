package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseSpace squashes runs of whitespace (including newlines) down
// to single spaces and trims the ends.
func CollapseSpace(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// NormalizeKey lowercases and trims a string for use in identity
// hashing and keyword matching.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Truncate caps a string at max bytes. Descriptions scraped off detail
// pages can run to many kilobytes, the store only keeps a preview.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// ContainsAny reports whether text contains any of the given keywords.
// Both sides are expected to already be lowercase.
func ContainsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
