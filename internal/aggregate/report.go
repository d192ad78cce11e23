package aggregate

import (
	"maps"
	"slices"

	"kyrealign/internal/canon"
)

// Reason classifies why a record did not contribute to the results.
type Reason string

// Rejection reasons.
const (
	ReasonNonStatewide  Reason = "non_statewide_office"
	ReasonPlaceholder   Reason = "placeholder_candidate"
	ReasonInvalidYear   Reason = "invalid_year"
	ReasonUnresolvable  Reason = "unresolvable_county"
	ReasonUnreadableRow Reason = "unreadable_row"
)

// Reasons lists every rejection reason in evaluation order.
var Reasons = []Reason{
	ReasonUnreadableRow,
	ReasonNonStatewide,
	ReasonPlaceholder,
	ReasonInvalidYear,
	ReasonUnresolvable,
}

// SourceStat summarises one source.
type SourceStat struct {
	Name     string
	Records  int
	Accepted int
	// Err is set when the source failed and its records were discarded.
	Err string
}

// Unresolved describes one raw county string that failed canonicalization.
type Unresolved struct {
	Raw        string
	Count      int
	Suggestion canon.Suggestion
}

// Report counts what happened to every ingested record.
type Report struct {
	Ingested        int
	Accepted        int
	Rejected        map[Reason]int
	MalformedVotes  int
	SuspiciousVotes int
	Strategies      map[canon.Strategy]int
	Sources         []SourceStat

	unresolved map[string]*Unresolved
}

func newReport() *Report {
	return &Report{
		Rejected:   make(map[Reason]int),
		Strategies: make(map[canon.Strategy]int),
		unresolved: make(map[string]*Unresolved),
	}
}

// TotalRejected sums all rejection counters.
func (r *Report) TotalRejected() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}

	return total
}

// Unresolved returns every unresolvable raw county, most frequent first and
// then by raw string.
func (r *Report) Unresolved() []Unresolved {
	out := make([]Unresolved, 0, len(r.unresolved))
	for _, key := range slices.Sorted(maps.Keys(r.unresolved)) {
		out = append(out, *r.unresolved[key])
	}

	slices.SortStableFunc(out, func(a, b Unresolved) int {
		return b.Count - a.Count
	})

	return out
}

// FailedSources returns sources that were discarded.
func (r *Report) FailedSources() []SourceStat {
	var out []SourceStat
	for _, s := range r.Sources {
		if s.Err != "" {
			out = append(out, s)
		}
	}

	return out
}
