package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"kyrealign/internal/aggregate"
	"kyrealign/internal/canon"
	"kyrealign/internal/models"
	"kyrealign/internal/tree"
	"kyrealign/pkg/textutil"
)

// maxMissingListed caps the missing-county list in coverage rows.
const maxMissingListed = 60

// RejectionTable lists every rejection reason with its count, followed by
// the non-fatal counters.
func RejectionTable(rep *aggregate.Report) *Table {
	t := &Table{Header: []string{"Category", "Records"}}

	t.Append("ingested", strconv.Itoa(rep.Ingested))
	t.Append("accepted", strconv.Itoa(rep.Accepted))

	for _, reason := range aggregate.Reasons {
		t.Append(string(reason), strconv.Itoa(rep.Rejected[reason]))
	}

	t.Append("malformed_votes (kept as 0)", strconv.Itoa(rep.MalformedVotes))
	t.Append("suspicious_votes (kept)", strconv.Itoa(rep.SuspiciousVotes))

	return t
}

// StrategyTable counts how accepted counties were resolved.
func StrategyTable(rep *aggregate.Report) *Table {
	t := &Table{Header: []string{"Strategy", "Records"}}

	for _, s := range []canon.Strategy{canon.StrategyDirect, canon.StrategySuffix, canon.StrategyOverride} {
		t.Append(string(s), strconv.Itoa(rep.Strategies[s]))
	}

	return t
}

// UnresolvedTable lists raw county strings that were dropped, with any
// advisory suggestion.
func UnresolvedTable(rep *aggregate.Report) *Table {
	t := &Table{Header: []string{"Raw county", "Records", "Suggestion", "Similarity"}}

	for _, u := range rep.Unresolved() {
		suggestion, similarity := "", ""
		if u.Suggestion.County != "" {
			suggestion = u.Suggestion.County
			similarity = fmt.Sprintf("%.3f", u.Suggestion.Similarity)
		}

		t.Append(strconv.Quote(u.Raw), strconv.Itoa(u.Count), suggestion, similarity)
	}

	return t
}

// SourceTable lists every source with its record counts.
func SourceTable(rep *aggregate.Report) *Table {
	t := &Table{Header: []string{"Source", "Records", "Accepted", "Status"}}

	for _, s := range rep.Sources {
		status := "ok"
		if s.Err != "" {
			status = "skipped: " + textutil.Truncate(s.Err, 80)
		}

		t.Append(s.Name, strconv.Itoa(s.Records), strconv.Itoa(s.Accepted), status)
	}

	return t
}

// CoverageTable reports, per contest, how many canonical counties have a
// result and which are missing.
func CoverageTable(t *tree.Tree, counties []string) *Table {
	out := &Table{Header: []string{"Year", "Office", "Contest", "Counties", "Missing"}}

	for _, year := range slices.Sorted(maps.Keys(t.ResultsByYear)) {
		y := t.ResultsByYear[year]
		for _, office := range slices.Sorted(maps.Keys(y)) {
			o := y[office]
			for _, label := range slices.Sorted(maps.Keys(o)) {
				results := o[label].Results

				var missing []string
				for _, c := range counties {
					if _, ok := results[c]; !ok {
						missing = append(missing, c)
					}
				}

				out.Append(year, office, label,
					fmt.Sprintf("%d/%d", len(results), len(counties)),
					textutil.Truncate(strings.Join(missing, ", "), maxMissingListed))
			}
		}
	}

	return out
}

// WinnerTable counts county winners and bands per contest.
func WinnerTable(t *tree.Tree) *Table {
	out := &Table{Header: []string{"Year", "Contest", "DEM", "REP", "TIE", "Tossup/Tilt"}}

	type tally struct{ dem, rep, tie, close int }

	counts := make(map[string]*tally)
	var keys []string

	t.Walk(func(year, _, contest string, r models.CountyContestResult) {
		k := year + "\x00" + contest
		c, ok := counts[k]
		if !ok {
			c = &tally{}
			counts[k] = c
			keys = append(keys, k)
		}

		switch r.Winner {
		case models.WinnerDEM:
			c.dem++
		case models.WinnerREP:
			c.rep++
		default:
			c.tie++
		}

		if r.Competitiveness.Category == "Tossup" || r.Competitiveness.Category == "Tilt" {
			c.close++
		}
	})

	for _, k := range keys {
		year, contest, _ := strings.Cut(k, "\x00")
		c := counts[k]
		out.Append(year, contest, strconv.Itoa(c.dem), strconv.Itoa(c.rep), strconv.Itoa(c.tie), strconv.Itoa(c.close))
	}

	return out
}

// Write renders the full run report.
func Write(w io.Writer, rep *aggregate.Report, t *tree.Tree, counties []string) error {
	stats := t.Stats()

	sections := []struct {
		title string
		table *Table
	}{
		{"Records", RejectionTable(rep)},
		{"County resolution", StrategyTable(rep)},
		{"Unresolvable counties", UnresolvedTable(rep)},
		{"Sources", SourceTable(rep)},
		{"Winners", WinnerTable(t)},
		{"Coverage", CoverageTable(t, counties)},
	}

	var sb strings.Builder

	sb.WriteString("# Kentucky county results\n\n")
	fmt.Fprintf(&sb, "Years: %s. Contests: %d. County results: %d.\n",
		strings.Join(stats.Years, ", "), stats.Contests, stats.Results)

	for _, s := range sections {
		fmt.Fprintf(&sb, "\n## %s\n\n", s.title)

		if len(s.table.Rows) == 0 {
			sb.WriteString("None.\n")
			continue
		}

		sb.WriteString(s.table.Render())
	}

	_, err := io.WriteString(w, sb.String())

	return err
}
