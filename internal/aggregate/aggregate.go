// Package aggregate groups raw records into per-county contest results.
//
// An Aggregator owns the in-progress result set for one run. Ingest is
// single-writer: it must not be called concurrently. Merge reads several
// sources in parallel but feeds their records to Ingest from one goroutine,
// in source order, so the first-seen tie-break for candidate names does not
// depend on scheduling.
package aggregate

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"kyrealign/internal/canon"
	"kyrealign/internal/ingest"
	"kyrealign/internal/logger"
	"kyrealign/internal/margin"
	"kyrealign/internal/models"
	"kyrealign/internal/office"
	"kyrealign/internal/party"
)

// Accepted years.
const (
	MinYear = 1900
	MaxYear = 2100
)

const defaultMaxParallel = 4

// Options tune an Aggregator.
type Options struct {
	Logger *logger.Logger
	// Placeholders overrides DefaultPlaceholders.
	Placeholders []string
	// MaxReasonableVotes flags single rows above this count as suspicious.
	// Flagged rows are kept. Zero disables the check.
	MaxReasonableVotes int
	// Suggest enables advisory fuzzy suggestions for unresolvable counties.
	Suggest bool
	// MinSimilarity is the lowest similarity logged as a suggestion.
	MinSimilarity float64
	// MaxParallel bounds how many sources Merge reads at once.
	MaxParallel int
}

// Outcome is the tagged result of ingesting one record.
type Outcome struct {
	Reason   Reason
	County   string
	Strategy canon.Strategy
	Contest  models.ContestKey
}

// Accepted reports whether the record contributed to a result.
func (o Outcome) Accepted() bool {
	return o.Reason == ""
}

type entry struct {
	result *models.CountyContestResult
	demMax int
	repMax int
}

type countyKey struct {
	contest models.ContestKey
	county  string
}

// Aggregator accumulates county contest results.
type Aggregator struct {
	canon        *canon.Canonicalizer
	placeholders *PlaceholderFilter
	opts         Options
	log          *logger.Logger

	entries map[countyKey]*entry
	report  *Report
}

// New creates an empty aggregator.
func New(c *canon.Canonicalizer, opts Options) *Aggregator {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}

	return &Aggregator{
		canon:        c,
		placeholders: NewPlaceholderFilter(opts.Placeholders),
		opts:         opts,
		log:          log,
		entries:      make(map[countyKey]*entry),
		report:       newReport(),
	}
}

// Report returns the live report.
func (a *Aggregator) Report() *Report {
	return a.report
}

// Len returns the number of county contest results.
func (a *Aggregator) Len() int {
	return len(a.entries)
}

func (a *Aggregator) reject(rec models.RawRecord, reason Reason) Outcome {
	a.report.Rejected[reason]++
	a.log.Debug("record rejected", "reason", string(reason), "record", rec.String())

	return Outcome{Reason: reason}
}

// Ingest applies one record.
func (a *Aggregator) Ingest(rec models.RawRecord) Outcome {
	a.report.Ingested++

	if rec.VotesMalformed {
		a.report.MalformedVotes++
	}

	category := office.Classify(rec.Office)
	if !category.IsStatewide() {
		return a.reject(rec, ReasonNonStatewide)
	}

	if a.placeholders.Match(rec.Candidate) {
		return a.reject(rec, ReasonPlaceholder)
	}

	if rec.Year < MinYear || rec.Year > MaxYear {
		return a.reject(rec, ReasonInvalidYear)
	}

	res := a.canon.Canonicalize(rec.County)
	if !res.OK() {
		a.unresolvable(rec)
		return a.reject(rec, ReasonUnresolvable)
	}

	a.report.Strategies[res.Strategy]++

	if a.opts.MaxReasonableVotes > 0 && rec.Votes > a.opts.MaxReasonableVotes {
		a.report.SuspiciousVotes++
		a.log.Warn("vote count above reasonable maximum",
			"record", rec.String(), "votes", rec.Votes, "max", a.opts.MaxReasonableVotes)
	}

	key := models.NewContestKey(rec.Year, category.Label(), rec.District)
	e := a.entry(key, res.County)

	switch party.Classify(rec.Party) {
	case party.Dem:
		e.result.DemVotes += rec.Votes
		if rec.Votes > e.demMax {
			e.demMax = rec.Votes
			e.result.DemCandidate = rec.Candidate
		}
	case party.Rep:
		e.result.RepVotes += rec.Votes
		if rec.Votes > e.repMax {
			e.repMax = rec.Votes
			e.result.RepCandidate = rec.Candidate
		}
	default:
		e.result.OtherVotes += rec.Votes
	}

	e.result.TotalVotes += rec.Votes
	a.report.Accepted++

	return Outcome{County: res.County, Strategy: res.Strategy, Contest: key}
}

func (a *Aggregator) entry(key models.ContestKey, county string) *entry {
	ck := countyKey{contest: key, county: county}

	e, ok := a.entries[ck]
	if !ok {
		e = &entry{result: models.NewCountyContestResult(key, county)}
		a.entries[ck] = e
	}

	return e
}

func (a *Aggregator) unresolvable(rec models.RawRecord) {
	u, seen := a.report.unresolved[rec.County]
	if !seen {
		u = &Unresolved{Raw: rec.County}
		a.report.unresolved[rec.County] = u
	}

	u.Count++

	if seen || !a.opts.Suggest {
		return
	}

	s, ok := a.canon.Suggest(rec.County)
	if !ok || s.Similarity < a.opts.MinSimilarity {
		return
	}

	u.Suggestion = s
	a.log.Warn("unresolvable county resembles a canonical county; add an override if correct",
		"raw", rec.County, "suggestion", s.County,
		"similarity", fmt.Sprintf("%.3f", s.Similarity), "record", rec.String())
}

// Results finalizes every result with calc and returns them ordered by
// year, office, contest label and county. The aggregator is unchanged.
func (a *Aggregator) Results(calc *margin.Calculator) []models.CountyContestResult {
	out := make([]models.CountyContestResult, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, calc.Finalize(*e.result))
	}

	slices.SortFunc(out, func(x, y models.CountyContestResult) int {
		if x.Contest != y.Contest {
			if x.Contest.Less(y.Contest) {
				return -1
			}

			return 1
		}

		return cmp.Compare(x.County, y.County)
	})

	return out
}

type batch struct {
	name    string
	records []models.RawRecord
	rowErrs int
	err     error
	done    chan struct{}
}

// Merge reads sources concurrently and ingests their records in source
// order. A source that fails is logged, recorded in the report and
// contributes nothing; per-row read errors are counted as unreadable rows.
// Merge returns ctx.Err() if the context is cancelled.
func (a *Aggregator) Merge(ctx context.Context, sources []ingest.Source) error {
	batches := make([]*batch, len(sources))

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, a.opts.MaxParallel)
	)

	for i, src := range sources {
		b := &batch{name: src.Name(), done: make(chan struct{})}
		batches[i] = b

		wg.Add(1)
		go func(src ingest.Source, b *batch) {
			defer wg.Done()
			defer close(b.done)

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				b.err = ctx.Err()
				return
			}
			defer func() { <-sem }()

			readSource(ctx, src, b)
		}(src, b)
	}

	defer wg.Wait()

	for _, b := range batches {
		select {
		case <-b.done:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		a.apply(b)
	}

	return nil
}

func readSource(ctx context.Context, src ingest.Source, b *batch) {
	for rec, err := range src.Records() {
		if ctx.Err() != nil {
			b.err = ctx.Err()
			return
		}

		if err != nil {
			if ingest.IsRowError(err) {
				b.rowErrs++
				continue
			}

			b.err = err
			return
		}

		b.records = append(b.records, rec)
	}
}

func (a *Aggregator) apply(b *batch) {
	stat := SourceStat{Name: b.name, Records: len(b.records) + b.rowErrs}

	if b.err != nil {
		stat.Err = b.err.Error()
		a.report.Sources = append(a.report.Sources, stat)
		a.log.Error("source skipped", "source", b.name, "error", b.err)

		return
	}

	if b.rowErrs > 0 {
		a.report.Ingested += b.rowErrs
		a.report.Rejected[ReasonUnreadableRow] += b.rowErrs
	}

	for _, rec := range b.records {
		if a.Ingest(rec).Accepted() {
			stat.Accepted++
		}
	}

	a.report.Sources = append(a.report.Sources, stat)
	a.log.Info("source merged", "source", b.name, "records", stat.Records, "accepted", stat.Accepted)
}
