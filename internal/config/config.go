// Package config provides configuration management for the results pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"kyrealign/internal/margin"
)

// Configuration validation errors.
var (
	ErrNoSources           = errors.New("at least one source is required")
	ErrSourceMissingPath   = errors.New("source path is required")
	ErrSourceInvalidFormat = errors.New("source format must be 'csv' or 'fixedwidth'")
	ErrNoEnabledSources    = errors.New("at least one source must be enabled")
	ErrInvalidSourceYear   = errors.New("source year must be zero or a plausible election year")
	ErrInvalidDenominator  = errors.New("aggregation.margin_denominator must be 'total' or 'two_party'")
	ErrInvalidMaxVotes     = errors.New("aggregation.max_reasonable_votes must be non-negative")
	ErrInvalidSimilarity   = errors.New("fuzzy.min_similarity must be between 0 and 1")
	ErrMissingOutputPath   = errors.New("output.path is required")
	ErrInvalidMaxParallel  = errors.New("concurrency.max_parallel_sources must be at least 1")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("logging.format must be 'text' or 'json'")
)

// Source formats.
const (
	FormatCSV        = "csv"
	FormatFixedWidth = "fixedwidth"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultOutputPath         = "out/ky_election_results.json"
	DefaultMaxReasonableVotes = 250000
	DefaultMinSimilarity      = 0.90
	DefaultMaxParallel        = 4
)

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

// PipelineConfig contains run settings.
type PipelineConfig struct {
	Sources     []SourceConfig    `yaml:"sources"`
	Reference   ReferenceConfig   `yaml:"reference"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Fuzzy       FuzzyConfig       `yaml:"fuzzy"`
	Output      OutputConfig      `yaml:"output"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SourceConfig represents one input file.
type SourceConfig struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Format  string `yaml:"format"`
	Year    int    `yaml:"year"`
	Enabled bool   `yaml:"enabled"`
}

// ReferenceConfig points at replacement reference tables. Empty paths
// select the embedded tables.
type ReferenceConfig struct {
	CountiesFile  string `yaml:"counties_file"`
	OverridesFile string `yaml:"overrides_file"`
}

// AggregationConfig tunes record filtering and margin math.
type AggregationConfig struct {
	MarginDenominator       string   `yaml:"margin_denominator"`
	PlaceholderCandidates   []string `yaml:"placeholder_candidates"`
	MaxReasonableVotes      int      `yaml:"max_reasonable_votes"`
	InferPartyFromCandidate bool     `yaml:"infer_party_from_candidate"`
}

// FuzzyConfig controls advisory county suggestions.
type FuzzyConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// OutputConfig defines output behavior.
type OutputConfig struct {
	Path        string `yaml:"path"`
	PrettyPrint bool   `yaml:"pretty_print"`
	Manifest    bool   `yaml:"manifest"`
	ReportPath  string `yaml:"report_path"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// ConcurrencyConfig bounds parallel source reads.
type ConcurrencyConfig struct {
	MaxParallelSources int `yaml:"max_parallel_sources"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a YAML file, applies defaults and
// validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.dir = filepath.Dir(path)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	p := &c.Pipeline

	for i := range p.Sources {
		p.Sources[i].Format = strings.ToLower(strings.TrimSpace(p.Sources[i].Format))
		if p.Sources[i].Format == "" {
			p.Sources[i].Format = inferFormat(p.Sources[i].Path)
		}
	}

	if p.Aggregation.MarginDenominator == "" {
		p.Aggregation.MarginDenominator = string(margin.DenominatorTotal)
	}

	if p.Aggregation.MaxReasonableVotes == 0 {
		p.Aggregation.MaxReasonableVotes = DefaultMaxReasonableVotes
	}

	if p.Fuzzy.MinSimilarity == 0 {
		p.Fuzzy.MinSimilarity = DefaultMinSimilarity
	}

	if p.Output.Path == "" {
		p.Output.Path = DefaultOutputPath
	}

	if p.Concurrency.MaxParallelSources == 0 {
		p.Concurrency.MaxParallelSources = DefaultMaxParallel
	}

	if p.Logging.Level == "" {
		p.Logging.Level = "info"
	}

	if p.Logging.Format == "" {
		p.Logging.Format = "text"
	}
}

func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".prn":
		return FormatFixedWidth
	default:
		return FormatCSV
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	p := &c.Pipeline

	if len(p.Sources) == 0 {
		return ErrNoSources
	}

	enabledCount := 0

	for i, src := range p.Sources {
		if src.Path == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingPath, i)
		}

		if src.Format != FormatCSV && src.Format != FormatFixedWidth {
			return fmt.Errorf("%w: source[%d] %q", ErrSourceInvalidFormat, i, src.Format)
		}

		if src.Year != 0 && (src.Year < 1900 || src.Year > 2100) {
			return fmt.Errorf("%w: source[%d] %d", ErrInvalidSourceYear, i, src.Year)
		}

		if src.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSources
	}

	if _, err := margin.ParseDenominator(p.Aggregation.MarginDenominator); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDenominator, p.Aggregation.MarginDenominator)
	}

	if p.Aggregation.MaxReasonableVotes < 0 {
		return ErrInvalidMaxVotes
	}

	if p.Fuzzy.MinSimilarity < 0 || p.Fuzzy.MinSimilarity > 1 {
		return ErrInvalidSimilarity
	}

	if p.Output.Path == "" {
		return ErrMissingOutputPath
	}

	if p.Concurrency.MaxParallelSources < 1 {
		return ErrInvalidMaxParallel
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[p.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if p.Logging.Format != "text" && p.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// GetEnabledSources returns only enabled sources.
func (c *Config) GetEnabledSources() []SourceConfig {
	var enabled []SourceConfig

	for _, src := range c.Pipeline.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// ResolvePath makes a relative path relative to the config file's
// directory. Empty and absolute paths are returned unchanged.
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}

	return filepath.Join(c.dir, path)
}

// Denominator returns the parsed margin denominator.
func (c *Config) Denominator() margin.Denominator {
	d, err := margin.ParseDenominator(c.Pipeline.Aggregation.MarginDenominator)
	if err != nil {
		return margin.DenominatorTotal
	}

	return d
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %d, Enabled: %d, Denominator: %s, Output: %s}",
		len(c.Pipeline.Sources),
		len(c.GetEnabledSources()),
		c.Pipeline.Aggregation.MarginDenominator,
		c.Pipeline.Output.Path,
	)
}
