// Package textutil provides string cleanup helpers shared by the reference
// table, the canonicalizer and the source readers.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// NormalizeWhitespace replaces runs of whitespace with a single space and trims.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// Truncate truncates str to maxLength runes, appending "..." when cut.
func Truncate(str string, maxLength int) string {
	r := []rune(str)
	if len(r) <= maxLength {
		return str
	}

	return string(r[:maxLength]) + "..."
}

// CleanCell trims whitespace and a leading byte order mark from a table cell.
func CleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")

	return strings.TrimSpace(v)
}

// StripAccents decomposes str and drops combining marks, so "Brěckinridge"
// becomes "Breckinridge". Compatibility forms (full-width letters, ligatures)
// are folded as well.
func StripAccents(str string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	out, _, err := transform.String(t, str)
	if err != nil {
		return str
	}

	return out
}

// MatchKey reduces a raw name to its lookup form: accents stripped,
// characters outside [A-Za-z0-9 .-] removed, whitespace collapsed and the
// result case-folded.
func MatchKey(raw string) string {
	s := StripAccents(raw)

	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == ' ':
			return r
		case unicode.IsSpace(r):
			return ' '
		}

		return -1
	}, s)

	return folder.String(NormalizeWhitespace(s))
}

// Fold case-folds str after collapsing whitespace, for case-insensitive
// comparisons of office and party labels.
func Fold(str string) string {
	return folder.String(NormalizeWhitespace(StripAccents(str)))
}
