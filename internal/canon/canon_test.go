package canon

import (
	"errors"
	"testing"

	"kyrealign/internal/reference"
)

func newDefault(t *testing.T) *Canonicalizer {
	t.Helper()

	table, err := reference.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}

	overrides, err := reference.DefaultOverrides(table)
	if err != nil {
		t.Fatalf("DefaultOverrides failed: %v", err)
	}

	return New(table, overrides)
}

func TestCanonicalize_Resolves(t *testing.T) {
	c := newDefault(t)

	tests := []struct {
		raw      string
		county   string
		strategy Strategy
	}{
		{"Hardin", "Hardin", StrategyDirect},
		{"HARD", "Hardin", StrategyDirect},
		{"hardin", "Hardin", StrategyDirect},
		{"  Hardin   County ", "Hardin", StrategyDirect},
		{"HARDIN COUNTY", "Hardin", StrategyDirect},
		{"Hardin Co.", "Hardin", StrategySuffix},
		{"Mccracken", "McCracken", StrategyDirect},
		{"Mc Cracken", "McCracken", StrategyDirect},
		{"MCCK", "McCracken", StrategyDirect},
		{"MCCR", "McCracken", StrategyOverride},
		{"MCRE", "McCreary", StrategyDirect},
		{"Breckenridge", "Breckinridge", StrategyDirect},
		{"BREC", "Breckinridge", StrategyDirect},
		{"Bulter", "Butler", StrategyDirect},
		{"LaRue", "Larue", StrategyDirect},
		{"GREE", "Green", StrategyDirect},
		{"GREU", "Greenup", StrategyDirect},
		{"0HIO", "Ohio", StrategyOverride},
		{"KATE", "Kenton", StrategyOverride},
		{"*JEFF", "Jefferson", StrategyDirect},
		{"Jefferson.", "Jefferson", StrategyDirect},
		{"Brěckinridge", "Breckinridge", StrategyDirect},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res := c.Canonicalize(tt.raw)
			if !res.OK() {
				t.Fatalf("Canonicalize(%q) failed: %v", tt.raw, res.Err)
			}

			if res.County != tt.county {
				t.Errorf("County = %q, want %q", res.County, tt.county)
			}

			if res.Strategy != tt.strategy {
				t.Errorf("Strategy = %q, want %q", res.Strategy, tt.strategy)
			}
		})
	}
}

func TestCanonicalize_Unresolvable(t *testing.T) {
	c := newDefault(t)

	for _, raw := range []string{"Allegany", "", "   ", "Cook County", "Statewide", "County", "XXXX"} {
		t.Run(raw, func(t *testing.T) {
			res := c.Canonicalize(raw)
			if res.OK() {
				t.Fatalf("Canonicalize(%q) = %q, want failure", raw, res.County)
			}

			if !errors.Is(res.Err, ErrUnresolvable) {
				t.Errorf("error = %v, want ErrUnresolvable", res.Err)
			}

			var ue *UnresolvableError
			if !errors.As(res.Err, &ue) || ue.Raw != raw {
				t.Errorf("UnresolvableError.Raw = %v, want %q", ue, raw)
			}
		})
	}
}

func TestCanonicalize_Deterministic(t *testing.T) {
	c := newDefault(t)

	inputs := []string{"MCCR", "Allegany", "Hardin", "hard", "Breckenridge"}
	first := make([]Result, len(inputs))

	for i, in := range inputs {
		first[i] = c.Canonicalize(in)
	}

	// Interleave suggestions and reversed order; results must not change.
	for i := len(inputs) - 1; i >= 0; i-- {
		c.Suggest(inputs[i])

		again := c.Canonicalize(inputs[i])
		if again.County != first[i].County || again.Strategy != first[i].Strategy || again.OK() != first[i].OK() {
			t.Errorf("Canonicalize(%q) changed between calls: %+v vs %+v", inputs[i], first[i], again)
		}
	}
}

func TestEveryCanonicalNameResolvesToItself(t *testing.T) {
	c := newDefault(t)

	counties := c.Counties()
	if len(counties) != reference.ExpectedCounties {
		t.Fatalf("Counties() len = %d", len(counties))
	}

	for _, name := range counties {
		res := c.Canonicalize(name)
		if res.County != name {
			t.Errorf("Canonicalize(%q) = %q", name, res.County)
		}

		if !c.IsCanonical(name) {
			t.Errorf("IsCanonical(%q) = false", name)
		}
	}

	if c.IsCanonical("Allegany") {
		t.Error("IsCanonical(Allegany) = true")
	}

	if len(c.Collisions()) != 0 {
		t.Errorf("default table has collisions: %v", c.Collisions())
	}
}

func TestNew_CollisionsRequireOverride(t *testing.T) {
	table := &reference.Table{Counties: []reference.County{
		{Name: "Green", Abbrev: "GRE", Alternates: []string{"Grn"}},
		{Name: "Greenup", Abbrev: "GRU", Alternates: []string{"Grn"}},
	}}

	c := New(table, nil)

	if got := c.Collisions(); len(got) != 1 || got[0] != "grn" {
		t.Fatalf("Collisions = %v, want [grn]", got)
	}

	if res := c.Canonicalize("GRN"); res.OK() {
		t.Errorf("ambiguous key resolved to %q without an override", res.County)
	}

	overrides := &reference.Overrides{Entries: []reference.Override{{Raw: "GRN", County: "Greenup"}}}
	c = New(table, overrides)

	res := c.Canonicalize("grn")
	if res.County != "Greenup" || res.Strategy != StrategyOverride {
		t.Errorf("Canonicalize(grn) = %+v, want Greenup via override", res)
	}
}

func TestSuggest(t *testing.T) {
	c := newDefault(t)

	s, ok := c.Suggest("Jeffersn")
	if !ok {
		t.Fatal("Suggest returned no match")
	}

	if s.County != "Jefferson" {
		t.Errorf("Suggest(Jeffersn) = %q, want Jefferson", s.County)
	}

	if s.Similarity <= 0.9 || s.Similarity > 1 {
		t.Errorf("Similarity = %f", s.Similarity)
	}

	// A suggestion never turns into a resolution.
	if res := c.Canonicalize("Jeffersn"); res.OK() {
		t.Errorf("Canonicalize(Jeffersn) resolved to %q", res.County)
	}

	if _, ok := c.Suggest(""); ok {
		t.Error("Suggest(\"\") returned a match")
	}
}
