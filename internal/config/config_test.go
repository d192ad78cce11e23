package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kyrealign/internal/margin"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// validConfigYAML is a minimal valid configuration.
const validConfigYAML = `
pipeline:
  sources:
    - name: "2019 general"
      path: data/KY_2019_GENERAL_COUNTY.csv
      enabled: true
    - name: "2000 dump"
      path: data/00gen.txt
      year: 2000
      enabled: false
  aggregation:
    margin_denominator: two_party
    infer_party_from_candidate: true
  fuzzy:
    enabled: true
  output:
    path: out/results.json
    pretty_print: true
    manifest: true
  logging:
    level: debug
`

func TestLoadConfig_Valid(t *testing.T) {
	configPath := createTempConfigFile(t, validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.Pipeline.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(cfg.Pipeline.Sources))
	}

	if cfg.Pipeline.Sources[0].Format != FormatCSV || cfg.Pipeline.Sources[1].Format != FormatFixedWidth {
		t.Errorf("Formats = %q, %q", cfg.Pipeline.Sources[0].Format, cfg.Pipeline.Sources[1].Format)
	}

	if got := cfg.GetEnabledSources(); len(got) != 1 || got[0].Name != "2019 general" {
		t.Errorf("GetEnabledSources = %+v", got)
	}

	if cfg.Denominator() != margin.DenominatorTwoParty {
		t.Errorf("Denominator = %s", cfg.Denominator())
	}

	want := filepath.Join(filepath.Dir(configPath), "out/results.json")
	if got := cfg.ResolvePath(cfg.Pipeline.Output.Path); got != want {
		t.Errorf("ResolvePath = %s, want %s", got, want)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	configPath := createTempConfigFile(t, `
pipeline:
  sources:
    - path: a.csv
      enabled: true
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	p := cfg.Pipeline
	if p.Aggregation.MarginDenominator != "total" {
		t.Errorf("MarginDenominator = %q", p.Aggregation.MarginDenominator)
	}

	if p.Aggregation.MaxReasonableVotes != DefaultMaxReasonableVotes {
		t.Errorf("MaxReasonableVotes = %d", p.Aggregation.MaxReasonableVotes)
	}

	if p.Fuzzy.MinSimilarity != DefaultMinSimilarity {
		t.Errorf("MinSimilarity = %v", p.Fuzzy.MinSimilarity)
	}

	if p.Output.Path != DefaultOutputPath || p.Concurrency.MaxParallelSources != DefaultMaxParallel {
		t.Errorf("Output.Path = %q, MaxParallelSources = %d", p.Output.Path, p.Concurrency.MaxParallelSources)
	}

	if p.Logging.Level != "info" || p.Logging.Format != "text" {
		t.Errorf("Logging = %+v", p.Logging)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func validConfig() *Config {
	cfg := &Config{
		Pipeline: PipelineConfig{
			Sources: []SourceConfig{{Path: "a.csv", Enabled: true}},
		},
	}
	cfg.ApplyDefaults()

	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"No sources", func(c *Config) { c.Pipeline.Sources = nil }, ErrNoSources},
		{"Missing path", func(c *Config) { c.Pipeline.Sources[0].Path = "" }, ErrSourceMissingPath},
		{"Bad format", func(c *Config) { c.Pipeline.Sources[0].Format = "xlsx" }, ErrSourceInvalidFormat},
		{"Bad year", func(c *Config) { c.Pipeline.Sources[0].Year = 20 }, ErrInvalidSourceYear},
		{"None enabled", func(c *Config) { c.Pipeline.Sources[0].Enabled = false }, ErrNoEnabledSources},
		{"Bad denominator", func(c *Config) { c.Pipeline.Aggregation.MarginDenominator = "weighted" }, ErrInvalidDenominator},
		{"Negative max votes", func(c *Config) { c.Pipeline.Aggregation.MaxReasonableVotes = -1 }, ErrInvalidMaxVotes},
		{"Similarity above one", func(c *Config) { c.Pipeline.Fuzzy.MinSimilarity = 1.5 }, ErrInvalidSimilarity},
		{"No output", func(c *Config) { c.Pipeline.Output.Path = "" }, ErrMissingOutputPath},
		{"No parallelism", func(c *Config) { c.Pipeline.Concurrency.MaxParallelSources = -2 }, ErrInvalidMaxParallel},
		{"Bad level", func(c *Config) { c.Pipeline.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"Bad log format", func(c *Config) { c.Pipeline.Logging.Format = "xml" }, ErrInvalidLogFormat},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("baseline config invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg := validConfig()
	cfg.Pipeline.Reference.OverridesFile = "overrides.yaml"

	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Pipeline.Reference.OverridesFile != "overrides.yaml" {
		t.Errorf("OverridesFile = %q", loaded.Pipeline.Reference.OverridesFile)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{dir: "/etc/ky"}

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/abs/file.csv", "/abs/file.csv"},
		{"data/a.csv", "/etc/ky/data/a.csv"},
	}

	for _, tt := range tests {
		if got := cfg.ResolvePath(tt.in); got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
