package textmatch

import (
	"strings"
	"unicode"
)

// Normalize folds case and drops every rune that is not a letter, a number
// or an underscore. The result is only meant for comparison.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CompactSpaces removes all whitespace, including the full-width ideographic
// space (U+3000), without touching case or punctuation.
// Used for album names where "Album X", "Album  X" and "Album　X" are the same album.
func CompactSpaces(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}
