package validators

import (
	"strings"
	"unicode"
)

// SanitizeText trims free text typed by shoppers (review, cancel note) and
// drops control characters other than newlines.
func SanitizeText(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, input)
	return strings.TrimSpace(cleaned)
}
