// Package pipeline runs the results build: sources are merged into the
// aggregator, results are finalized and checked, and the tree is serialized.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"kyrealign/internal/aggregate"
	"kyrealign/internal/canon"
	"kyrealign/internal/ingest"
	"kyrealign/internal/logger"
	"kyrealign/internal/margin"
	"kyrealign/internal/models"
	"kyrealign/internal/reference"
	"kyrealign/internal/tree"
	"kyrealign/internal/validator"
)

// Run-level errors. Everything else is counted, not returned.
var (
	ErrReference          = errors.New("county reference data unavailable")
	ErrNoSurvivingRecords = errors.New("no records survived ingestion")
	ErrInvalidOutput      = errors.New("results tree failed validation")
)

// Options configures a Processor.
type Options struct {
	// Reference and Overrides default to the embedded tables.
	Reference   *reference.Table
	Overrides   *reference.Overrides
	Denominator margin.Denominator
	Aggregate   aggregate.Options
	Pretty      bool
	Logger      *logger.Logger
}

// Processor handles one results build.
type Processor struct {
	table     *reference.Table
	overrides *reference.Overrides
	canon     *canon.Canonicalizer
	calc      *margin.Calculator
	validator *validator.TreeValidator
	opts      Options
	log       *logger.Logger
}

// Summary is the outcome of Process.
type Summary struct {
	Report     *aggregate.Report
	Results    []models.CountyContestResult
	Tree       *tree.Tree
	Stats      tree.Stats
	Validation *validator.ValidationResult
	Artifact   []byte
}

// NewProcessor creates a new processor instance. Failing to load the
// reference tables is fatal.
func NewProcessor(opts Options) (*Processor, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	table := opts.Reference
	if table == nil {
		var err error
		if table, err = reference.LoadDefault(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReference, err)
		}
	} else if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}

	overrides := opts.Overrides
	if overrides == nil {
		var err error
		if overrides, err = reference.DefaultOverrides(table); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReference, err)
		}
	}

	c := canon.New(table, overrides, canon.WithLogger(log.With("component", "canon")))
	calc := margin.New(opts.Denominator)

	v, err := validator.New(c, calc)
	if err != nil {
		return nil, err
	}

	if opts.Aggregate.Logger == nil {
		opts.Aggregate.Logger = log.With("component", "aggregate")
	}

	return &Processor{
		table:     table,
		overrides: overrides,
		canon:     c,
		calc:      calc,
		validator: v,
		opts:      opts,
		log:       log,
	}, nil
}

// Canonicalizer returns the processor's canonicalizer.
func (p *Processor) Canonicalizer() *canon.Canonicalizer {
	return p.canon
}

// Reference returns the loaded county table and overrides.
func (p *Processor) Reference() (*reference.Table, *reference.Overrides) {
	return p.table, p.overrides
}

// Calculator returns the margin calculator.
func (p *Processor) Calculator() *margin.Calculator {
	return p.calc
}

// Process builds the results tree from sources.
func (p *Processor) Process(ctx context.Context, sources []ingest.Source) (*Summary, error) {
	// 1. Merge every source into a fresh aggregator
	agg := aggregate.New(p.canon, p.opts.Aggregate)
	if err := agg.Merge(ctx, sources); err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}

	rep := agg.Report()
	p.log.Info("ingestion complete",
		"ingested", rep.Ingested, "accepted", rep.Accepted, "rejected", rep.TotalRejected(),
		"malformed_votes", rep.MalformedVotes, "suspicious_votes", rep.SuspiciousVotes)

	if rep.Accepted == 0 {
		return &Summary{Report: rep}, ErrNoSurvivingRecords
	}

	// 2. Finalize and assemble
	results := agg.Results(p.calc)
	t := tree.Build(results)

	summary := &Summary{
		Report:  rep,
		Results: results,
		Tree:    t,
		Stats:   t.Stats(),
	}

	// 3. Check the invariants on the assembled tree
	summary.Validation = p.validator.ValidateTree(t)
	if !summary.Validation.IsValid {
		return summary, fmt.Errorf("%w: %w", ErrInvalidOutput, summary.Validation.Err())
	}

	// 4. Serialize
	data, err := tree.Marshal(t, p.opts.Pretty)
	if err != nil {
		return summary, err
	}

	summary.Artifact = data
	p.log.Info("results tree built",
		"years", len(summary.Stats.Years), "contests", summary.Stats.Contests,
		"results", summary.Stats.Results, "bytes", len(data))

	return summary, nil
}
