// Package party reduces raw party labels to the dem/rep/other buckets
// tracked in results.
package party

import (
	"slices"
	"strings"

	"kyrealign/pkg/textutil"
)

// Bucket is one of the three tracked party buckets.
type Bucket string

// Buckets.
const (
	Dem   Bucket = "dem"
	Rep   Bucket = "rep"
	Other Bucket = "other"
)

// Code returns the upper-case code used in all_parties and winner fields.
func (b Bucket) Code() string {
	return strings.ToUpper(string(b))
}

var (
	demLabels = map[string]bool{"dem": true, "democrat": true, "d": true}
	repLabels = map[string]bool{"rep": true, "republican": true, "r": true, "gop": true}
)

// Classify maps a raw party label to a bucket. Matching is an exact,
// case-insensitive set lookup; anything else, including an empty label,
// is Other.
func Classify(raw string) Bucket {
	p := textutil.Fold(raw)

	switch {
	case demLabels[p]:
		return Dem
	case repLabels[p]:
		return Rep
	default:
		return Other
	}
}

// Hints holds surname lists used to recover a party for sources that carry
// no party column.
type Hints struct {
	Dem []string `yaml:"dem"`
	Rep []string `yaml:"rep"`
}

// DefaultHints covers the major-party statewide and federal candidates that
// appear in the fixed-width county dumps.
func DefaultHints() Hints {
	return Hints{
		Dem: []string{
			"adkins", "bentsen", "biden", "clinton", "combs", "dukakis", "edwards",
			"ferraro", "gore", "grimes", "harris", "kerry", "lieberman", "mondale",
			"obama", "robinson", "waltz", "walz", "weinberg",
		},
		Rep: []string{
			"bunning", "bush", "cheney", "dole", "forgy", "kemp", "mccain",
			"mcconnell", "nolan", "palin", "pence", "quayle", "reagan", "romney",
			"ryan", "trump", "williams",
		},
	}
}

// Infer returns "DEM" or "REP" when a word of candidate matches a hint
// surname, or "" when neither does. Dem hints are checked first.
func (h Hints) Infer(candidate string) string {
	words := strings.FieldsFunc(textutil.Fold(candidate), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})

	for _, w := range words {
		if slices.Contains(h.Dem, w) {
			return Dem.Code()
		}
	}

	for _, w := range words {
		if slices.Contains(h.Rep, w) {
			return Rep.Code()
		}
	}

	return ""
}
