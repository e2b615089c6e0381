package helpers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanText collapses whitespace runs into single spaces and trims the result
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fold lowercases s and strips combining marks so accented and unaccented
// spellings compare equal ("reseñas" == "resenas")
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// FoldContains reports whether haystack contains needle after folding both
func FoldContains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
