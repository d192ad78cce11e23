package aggregate

import (
	"regexp"

	"kyrealign/pkg/textutil"
)

// DefaultPlaceholders are candidate labels that carry tallies rather than
// votes for a person.
var DefaultPlaceholders = []string{
	"Over Votes", "Under Votes", "Total Votes", "Total",
	"Overvotes", "Undervotes", "Blank", "Blanks",
	"Write-In", "Write-Ins", "Write In", "Scattered",
}

// generic labels produced by table extraction.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^candidate_\d+$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^(blank|write.?ins?|scattered|over ?votes?|under ?votes?)\b`),
}

// PlaceholderFilter recognises non-candidate rows.
type PlaceholderFilter struct {
	names map[string]bool
}

// NewPlaceholderFilter builds a filter from exact labels. Matching ignores
// case and surrounding whitespace. A nil list selects DefaultPlaceholders.
func NewPlaceholderFilter(labels []string) *PlaceholderFilter {
	if labels == nil {
		labels = DefaultPlaceholders
	}

	f := &PlaceholderFilter{names: make(map[string]bool, len(labels))}
	for _, l := range labels {
		f.names[textutil.Fold(l)] = true
	}

	return f
}

// Match reports whether candidate is blank or a placeholder label.
func (f *PlaceholderFilter) Match(candidate string) bool {
	key := textutil.Fold(candidate)
	if key == "" || f.names[key] {
		return true
	}

	for _, p := range placeholderPatterns {
		if p.MatchString(key) {
			return true
		}
	}

	return false
}
