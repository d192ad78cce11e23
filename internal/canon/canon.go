// Package canon maps raw county spellings onto the closed set of canonical
// counties.
//
// A Canonicalizer is built once from a reference table and an override table
// and is read-only afterwards, so it is safe for concurrent use. It never
// guesses: a raw string that matches no key, no suffix-stripped key and no
// curated override is reported as unresolvable. Fuzzy similarity is exposed
// separately through Suggest for diagnostics only.
package canon

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"

	"kyrealign/internal/logger"
	"kyrealign/internal/reference"
	"kyrealign/pkg/textutil"
)

// ErrUnresolvable is matched by every UnresolvableError.
var ErrUnresolvable = errors.New("unresolvable county")

// Strategy names the lookup step that resolved a county.
type Strategy string

// Lookup strategies, in the order they are attempted.
const (
	StrategyDirect   Strategy = "direct"
	StrategySuffix   Strategy = "suffix"
	StrategyOverride Strategy = "override"
)

// countySuffixes are trailing tokens stripped before the second lookup.
var countySuffixes = []string{" county", " co.", " co"}

// UnresolvableError carries the raw string that could not be resolved.
type UnresolvableError struct {
	Raw string
}

func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnresolvable, e.Raw)
}

// Is reports whether target is ErrUnresolvable.
func (e *UnresolvableError) Is(target error) bool {
	return target == ErrUnresolvable
}

// Result is the outcome of one canonicalization.
type Result struct {
	Err      error
	County   string
	Strategy Strategy
}

// OK reports whether the raw value resolved to a canonical county.
func (r Result) OK() bool {
	return r.Err == nil
}

// Suggestion is an advisory nearest match for an unresolvable name.
type Suggestion struct {
	County     string
	Key        string
	Similarity float64
}

type fuzzyKey struct {
	key    string
	county string
}

// Canonicalizer resolves raw county names.
type Canonicalizer struct {
	log        *logger.Logger
	direct     map[string]string
	overrides  map[string]string
	canonical  map[string]bool
	counties   []string
	fuzzy      []fuzzyKey
	collisions []string
}

// Option customises New.
type Option func(*Canonicalizer)

// WithLogger attaches a logger used for build-time collision warnings.
func WithLogger(l *logger.Logger) Option {
	return func(c *Canonicalizer) { c.log = l }
}

// New builds the lookup tables. overrides may be nil.
func New(table *reference.Table, overrides *reference.Overrides, opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		log:       logger.Discard(),
		direct:    make(map[string]string),
		overrides: make(map[string]string),
		canonical: make(map[string]bool, len(table.Counties)),
	}

	for _, o := range opts {
		o(c)
	}

	owners := make(map[string]string)
	collided := make(map[string]bool)

	register := func(raw, county string) {
		key := lookupKey(raw)
		if key == "" || collided[key] {
			return
		}

		if prev, ok := owners[key]; ok && prev != county {
			collided[key] = true
			delete(owners, key)

			return
		}

		owners[key] = county
	}

	for _, county := range table.Counties {
		c.canonical[county.Name] = true
		c.counties = append(c.counties, county.Name)

		register(county.Name, county.Name)
		register(county.Label, county.Name)
		register(county.Key, county.Name)
		register(county.Name+" County", county.Name)
		register(county.Abbrev, county.Name)

		for _, alt := range county.Alternates {
			register(alt, county.Name)
		}

		c.fuzzy = append(c.fuzzy, fuzzyKey{key: lookupKey(county.Name), county: county.Name})
		for _, alt := range county.Alternates {
			c.fuzzy = append(c.fuzzy, fuzzyKey{key: lookupKey(alt), county: county.Name})
		}
	}

	c.direct = owners

	for key := range collided {
		c.collisions = append(c.collisions, key)
	}

	slices.Sort(c.collisions)
	slices.Sort(c.counties)

	if len(c.collisions) > 0 {
		c.log.Warn("ambiguous county keys removed from direct lookup; add override entries",
			"keys", strings.Join(c.collisions, ","))
	}

	if overrides != nil {
		for _, o := range overrides.Entries {
			if key := lookupKey(o.Raw); key != "" {
				c.overrides[key] = o.County
			}
		}
	}

	return c
}

// lookupKey is the normalized form used for every table key.
func lookupKey(raw string) string {
	return strings.Trim(textutil.MatchKey(raw), " .-")
}

// Canonicalize resolves raw to a canonical county.
func (c *Canonicalizer) Canonicalize(raw string) Result {
	key := lookupKey(raw)
	if key == "" {
		return Result{Err: &UnresolvableError{Raw: raw}}
	}

	if county, ok := c.direct[key]; ok {
		return Result{County: county, Strategy: StrategyDirect}
	}

	stripped := stripCountySuffix(key)
	if stripped != key {
		if county, ok := c.direct[stripped]; ok {
			return Result{County: county, Strategy: StrategySuffix}
		}
	}

	if county, ok := c.overrides[key]; ok {
		return Result{County: county, Strategy: StrategyOverride}
	}

	if county, ok := c.overrides[stripped]; ok {
		return Result{County: county, Strategy: StrategyOverride}
	}

	return Result{Err: &UnresolvableError{Raw: raw}}
}

func stripCountySuffix(key string) string {
	for _, suffix := range countySuffixes {
		if trimmed, ok := strings.CutSuffix(key, suffix); ok {
			return strings.Trim(trimmed, " .-")
		}
	}

	return key
}

// Suggest returns the most similar canonical county by Jaro-Winkler
// similarity. It is advisory and never consulted by Canonicalize.
func (c *Canonicalizer) Suggest(raw string) (Suggestion, bool) {
	key := stripCountySuffix(lookupKey(raw))
	if key == "" {
		return Suggestion{}, false
	}

	var best Suggestion

	for _, fk := range c.fuzzy {
		sim := matchr.JaroWinkler(key, fk.key, false)
		if sim > best.Similarity {
			best = Suggestion{County: fk.county, Key: fk.key, Similarity: sim}
		}
	}

	return best, best.County != ""
}

// Counties returns the canonical set in sorted order.
func (c *Canonicalizer) Counties() []string {
	return slices.Clone(c.counties)
}

// IsCanonical reports whether name is a member of the canonical set.
func (c *Canonicalizer) IsCanonical(name string) bool {
	return c.canonical[name]
}

// Collisions returns keys dropped from direct lookup because two counties
// registered them.
func (c *Canonicalizer) Collisions() []string {
	return slices.Clone(c.collisions)
}
