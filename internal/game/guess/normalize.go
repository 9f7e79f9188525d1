package guess

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes guess text for comparison: case-folded with
// everything but letters and digits stripped, so "Red Car!" matches "red car".
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
