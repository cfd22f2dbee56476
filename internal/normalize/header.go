package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWord    = regexp.MustCompile(`[^\s\w]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Header turns a column heading into its symbolic key:
// "TimeFrame" -> "timeframe", "Race Ethnicity" -> "race_ethnicity",
// "Race/Ethnicity" -> "raceethnicity".
func Header(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	h, _, _ = transform.String(stripAccents, strings.ToLower(h))
	h = nonWord.ReplaceAllString(h, "")
	h = strings.TrimSpace(h)
	return whitespace.ReplaceAllString(h, "_")
}
