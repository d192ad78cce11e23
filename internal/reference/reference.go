// Package reference loads the closed set of canonical counties and the
// curated override table used to resolve legacy abbreviations.
package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"kyrealign/pkg/textutil"
)

// ExpectedCounties is the size of the canonical set.
const ExpectedCounties = 120

// Reference table errors.
var (
	ErrInvalidTable       = errors.New("invalid county reference table")
	ErrCountyCount        = errors.New("county reference table must list exactly 120 counties")
	ErrDuplicateCounty    = errors.New("duplicate canonical county")
	ErrDuplicateAbbrev    = errors.New("duplicate county abbreviation")
	ErrEmptyCountyName    = errors.New("county name is required")
	ErrOverrideUnknown    = errors.New("override targets a county outside the canonical set")
	ErrOverrideDuplicate  = errors.New("duplicate override entry")
	ErrOverrideMissingRaw = errors.New("override raw value is required")
)

//go:embed counties.yaml
var defaultCounties []byte

//go:embed overrides.yaml
var defaultOverrides []byte

// County is one canonical county identity.
type County struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label"`
	Key        string   `yaml:"key"`
	Abbrev     string   `yaml:"abbrev"`
	Alternates []string `yaml:"alternates"`
}

// Table is the county reference table.
type Table struct {
	Counties []County `yaml:"counties"`
	Version  int      `yaml:"version"`
}

// Override maps one raw legacy spelling to a canonical county.
type Override struct {
	Raw    string `yaml:"raw"`
	County string `yaml:"county"`
	Note   string `yaml:"note"`
}

// Overrides is the versioned, hand-curated override table.
type Overrides struct {
	Entries []Override `yaml:"overrides"`
	Version int        `yaml:"version"`
}

// LoadDefault parses the embedded Kentucky county table.
func LoadDefault() (*Table, error) {
	return parseTable(defaultCounties)
}

// Load reads a county table from path. An empty path loads the embedded table.
func Load(path string) (*Table, error) {
	if path == "" {
		return LoadDefault()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read county table: %w", err)
	}

	return parseTable(data)
}

func parseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse county table: %w", err)
	}

	t.fillDefaults()

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

func (t *Table) fillDefaults() {
	for i := range t.Counties {
		c := &t.Counties[i]
		c.Name = textutil.NormalizeWhitespace(c.Name)

		if c.Label == "" && c.Name != "" {
			c.Label = c.Name + " County"
		}

		if c.Key == "" {
			c.Key = textutil.MatchKey(c.Name)
		}
	}
}

// Validate checks the table is a closed set of 120 unique counties.
func (t *Table) Validate() error {
	if len(t.Counties) != ExpectedCounties {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidTable, ErrCountyCount, len(t.Counties))
	}

	names := make(map[string]bool, len(t.Counties))
	abbrevs := make(map[string]string, len(t.Counties))

	for i, c := range t.Counties {
		if c.Name == "" {
			return fmt.Errorf("%w: %w: county[%d]", ErrInvalidTable, ErrEmptyCountyName, i)
		}

		if names[c.Key] {
			return fmt.Errorf("%w: %w: %s", ErrInvalidTable, ErrDuplicateCounty, c.Name)
		}

		names[c.Key] = true

		if c.Abbrev == "" {
			continue
		}

		abbr := textutil.MatchKey(c.Abbrev)
		if other, ok := abbrevs[abbr]; ok {
			return fmt.Errorf("%w: %w: %s used by %s and %s", ErrInvalidTable, ErrDuplicateAbbrev, c.Abbrev, other, c.Name)
		}

		abbrevs[abbr] = c.Name
	}

	return nil
}

// Names returns the canonical county names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.Counties))
	for _, c := range t.Counties {
		names = append(names, c.Name)
	}

	slices.Sort(names)

	return names
}

// Lookup returns the county with the given canonical name.
func (t *Table) Lookup(name string) (County, bool) {
	for _, c := range t.Counties {
		if c.Name == name {
			return c, true
		}
	}

	return County{}, false
}

// DefaultOverrides parses the embedded override table and validates it
// against table.
func DefaultOverrides(table *Table) (*Overrides, error) {
	return parseOverrides(defaultOverrides, table)
}

// LoadOverrides reads an override table from path. An empty path loads the
// embedded table.
func LoadOverrides(path string, table *Table) (*Overrides, error) {
	if path == "" {
		return DefaultOverrides(table)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override table: %w", err)
	}

	return parseOverrides(data, table)
}

func parseOverrides(data []byte, table *Table) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse override table: %w", err)
	}

	if err := o.Validate(table); err != nil {
		return nil, err
	}

	return &o, nil
}

// Validate checks every override targets a canonical county and no raw value
// is listed twice.
func (o *Overrides) Validate(table *Table) error {
	seen := make(map[string]bool, len(o.Entries))

	for i, e := range o.Entries {
		key := textutil.MatchKey(e.Raw)
		if key == "" {
			return fmt.Errorf("%w: override[%d]", ErrOverrideMissingRaw, i)
		}

		if seen[key] {
			return fmt.Errorf("%w: %s", ErrOverrideDuplicate, e.Raw)
		}

		seen[key] = true

		if _, ok := table.Lookup(e.County); !ok {
			return fmt.Errorf("%w: %s -> %s", ErrOverrideUnknown, e.Raw, e.County)
		}
	}

	return nil
}
