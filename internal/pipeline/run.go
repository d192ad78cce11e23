package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"kyrealign/internal/aggregate"
	"kyrealign/internal/config"
	"kyrealign/internal/ingest"
	"kyrealign/internal/logger"
	"kyrealign/internal/party"
	"kyrealign/internal/reference"
	"kyrealign/internal/report"
	"kyrealign/internal/store"
	"kyrealign/internal/tree"
	"kyrealign/pkg/manifest"
)

// Outputs lists the files written by Run. Empty paths were not written.
type Outputs struct {
	Artifact string
	Manifest string
	Report   string
	SQLite   string
}

// NewFromConfig builds a processor from pipeline configuration.
func NewFromConfig(cfg *config.Config, log *logger.Logger) (*Processor, error) {
	if log == nil {
		log = logger.Discard()
	}

	p := cfg.Pipeline

	var (
		table     *reference.Table
		overrides *reference.Overrides
		err       error
	)

	if path := cfg.ResolvePath(p.Reference.CountiesFile); path != "" {
		if table, err = reference.Load(path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReference, err)
		}
	} else if table, err = reference.LoadDefault(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}

	if path := cfg.ResolvePath(p.Reference.OverridesFile); path != "" {
		if overrides, err = reference.LoadOverrides(path, table); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReference, err)
		}
	}

	return NewProcessor(Options{
		Reference:   table,
		Overrides:   overrides,
		Denominator: cfg.Denominator(),
		Pretty:      p.Output.PrettyPrint,
		Logger:      log,
		Aggregate: aggregate.Options{
			Logger:             log.With("component", "aggregate"),
			Placeholders:       p.Aggregation.PlaceholderCandidates,
			MaxReasonableVotes: p.Aggregation.MaxReasonableVotes,
			Suggest:            p.Fuzzy.Enabled,
			MinSimilarity:      p.Fuzzy.MinSimilarity,
			MaxParallel:        p.Concurrency.MaxParallelSources,
		},
	})
}

// Sources builds the enabled input sources in configuration order.
func Sources(cfg *config.Config) []ingest.Source {
	var infer func(string) string
	if cfg.Pipeline.Aggregation.InferPartyFromCandidate {
		infer = party.DefaultHints().Infer
	}

	var sources []ingest.Source

	for _, sc := range cfg.GetEnabledSources() {
		path := cfg.ResolvePath(sc.Path)

		switch sc.Format {
		case config.FormatFixedWidth:
			src := ingest.NewFixedWidthSource(sc.Name, path, sc.Year)
			src.InferParty = infer
			sources = append(sources, src)
		default:
			sources = append(sources, ingest.NewCSVSource(sc.Name, path, sc.Year))
		}
	}

	return sources
}

// Run executes a full build from configuration and writes every configured
// output. The artifact is written only when the tree validates.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Summary, *Outputs, error) {
	if log == nil {
		log = logger.Discard()
	}

	proc, err := NewFromConfig(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	log.Info("starting build", "config", cfg.String())

	summary, err := proc.Process(ctx, Sources(cfg))
	if err != nil {
		if summary != nil && summary.Validation != nil {
			var buf bytes.Buffer
			summary.Validation.PrintErrors(&buf)
			log.Error("validation failed", "details", buf.String())
		}

		return summary, nil, err
	}

	out, err := proc.WriteOutputs(ctx, cfg, summary)
	if err != nil {
		return summary, out, err
	}

	return summary, out, nil
}

// WriteOutputs writes the artifact, its manifest, the markdown report and
// the SQLite export as configured.
func (p *Processor) WriteOutputs(ctx context.Context, cfg *config.Config, s *Summary) (*Outputs, error) {
	oc := cfg.Pipeline.Output
	out := &Outputs{Artifact: cfg.ResolvePath(oc.Path)}

	if err := tree.WriteFile(out.Artifact, s.Artifact); err != nil {
		return out, fmt.Errorf("failed to write artifact: %w", err)
	}

	p.log.Info("artifact written", "path", out.Artifact, "bytes", len(s.Artifact))

	if oc.Manifest {
		out.Manifest = manifest.SidecarPath(out.Artifact)

		data, err := p.Manifest(out.Artifact, s).Marshal()
		if err != nil {
			return out, err
		}

		if err := tree.WriteFile(out.Manifest, data); err != nil {
			return out, fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	if oc.ReportPath != "" {
		out.Report = cfg.ResolvePath(oc.ReportPath)

		var buf bytes.Buffer
		if err := report.Write(&buf, s.Report, s.Tree, p.canon.Counties()); err != nil {
			return out, fmt.Errorf("failed to render report: %w", err)
		}

		if err := tree.WriteFile(out.Report, buf.Bytes()); err != nil {
			return out, fmt.Errorf("failed to write report: %w", err)
		}
	}

	if oc.SQLitePath != "" {
		out.SQLite = cfg.ResolvePath(oc.SQLitePath)
		if err := exportSQLite(ctx, out.SQLite, s); err != nil {
			return out, err
		}

		p.log.Info("sqlite export written", "path", out.SQLite, "results", len(s.Results))
	}

	return out, nil
}

// Manifest describes a built artifact.
func (p *Processor) Manifest(artifactPath string, s *Summary) *manifest.Manifest {
	info := manifest.Info{
		Validated:         s.Validation != nil && s.Validation.IsValid,
		Years:             s.Stats.Years,
		Contests:          s.Stats.Contests,
		Results:           s.Stats.Results,
		Counties:          s.Stats.Counties,
		MarginDenominator: string(p.calc.Denominator()),
		ReferenceVersion:  p.table.Version,
	}

	if p.overrides != nil {
		info.OverridesVersion = p.overrides.Version
	}

	return manifest.Build(artifactPath, s.Artifact, info)
}

func exportSQLite(ctx context.Context, path string, s *Summary) error {
	db, err := store.Open(path, store.WithMkdirAll())
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Export(ctx, s.Results, s.Report)
}
