package metrics

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold lowercases text with Unicode-aware case folding. Responses routinely
// contain non-ASCII glyphs, so plain strings.ToLower is not enough.
func Fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Tokenize splits a response into lowercase word tokens. A token is a run
// of letters, digits or underscores, matching the word-count convention the
// light score normalizes against.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
