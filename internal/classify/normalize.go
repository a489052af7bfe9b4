// Package classify implements the multi-tier classification pipeline:
// explicit overrides, deterministic rule matching, semantic memory, the
// external classifier, and the keyword fallback, in strict precedence order.
package classify

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes an asset description for matching: lowercase,
// punctuation stripped, whitespace collapsed.
func Normalize(description string) string {
	var b strings.Builder
	b.Grow(len(description))

	lastSpace := true
	for _, r := range strings.ToLower(description) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// tokenize splits a normalized description into words.
func tokenize(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
