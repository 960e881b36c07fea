package extract

import (
	"strings"
	"unicode"
)

// compact removes all whitespace. PDF text breaks lines mid-sentence, so quotes
// are compared with whitespace stripped from both sides.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// VerifyQuotes returns the quote keys of data whose non-empty value does not
// occur in passages. Keys are returned in field order.
func VerifyQuotes(f Field, data map[string]string, passages string) []string {
	haystack := compact(passages)
	var missing []string
	for _, k := range f.QuoteKeys() {
		q := compact(data[k])
		if q == "" {
			continue
		}
		if !strings.Contains(haystack, q) {
			missing = append(missing, k)
		}
	}
	return missing
}
