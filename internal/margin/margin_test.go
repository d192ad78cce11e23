package margin

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kyrealign/internal/models"
)

func result(dem, rep, other int) models.CountyContestResult {
	return models.CountyContestResult{
		DemVotes:   dem,
		RepVotes:   rep,
		OtherVotes: other,
		TotalVotes: dem + rep + other,
	}
}

func TestFinalize_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		in        models.CountyContestResult
		margin    int
		marginPct float64
		winner    string
		category  string
		parties   map[string]int
	}{
		{
			name:      "Hardin governor",
			in:        result(10000, 12500, 0),
			margin:    -2500,
			marginPct: 11.11,
			winner:    "REP",
			category:  "Safe",
			parties:   map[string]int{"DEM": 10000, "REP": 12500},
		},
		{
			name:      "Jefferson stronghold",
			in:        result(60000, 40000, 0),
			margin:    20000,
			marginPct: 20,
			winner:    "DEM",
			category:  "Stronghold",
			parties:   map[string]int{"DEM": 60000, "REP": 40000},
		},
		{
			name:      "Tie",
			in:        result(500, 500, 10),
			margin:    0,
			marginPct: 0,
			winner:    "TIE",
			category:  "Tossup",
			parties:   map[string]int{"DEM": 500, "REP": 500, "OTHER": 10},
		},
		{
			name:      "Empty",
			in:        result(0, 0, 0),
			margin:    0,
			marginPct: 0,
			winner:    "TIE",
			category:  "Tossup",
			parties:   map[string]int{},
		},
		{
			name:     "Other only",
			in:       result(0, 0, 42),
			winner:   "TIE",
			category: "Tossup",
			parties:  map[string]int{"OTHER": 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Finalize(tt.in)

			if got.Margin != tt.margin {
				t.Errorf("Margin = %d, want %d", got.Margin, tt.margin)
			}

			if got.MarginPct != tt.marginPct {
				t.Errorf("MarginPct = %v, want %v", got.MarginPct, tt.marginPct)
			}

			if got.Winner != tt.winner {
				t.Errorf("Winner = %s, want %s", got.Winner, tt.winner)
			}

			if got.Competitiveness.Category != tt.category {
				t.Errorf("Category = %s, want %s", got.Competitiveness.Category, tt.category)
			}

			if got.TwoPartyTotal != tt.in.DemVotes+tt.in.RepVotes {
				t.Errorf("TwoPartyTotal = %d", got.TwoPartyTotal)
			}

			if diff := cmp.Diff(tt.parties, got.AllParties); diff != "" {
				t.Errorf("AllParties mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFinalize_DoesNotMutateInput(t *testing.T) {
	in := result(3, 1, 0)
	in.AllParties = map[string]int{"stale": 1}

	Finalize(in)

	if in.Winner != "" || len(in.AllParties) != 1 {
		t.Errorf("input modified: %+v", in)
	}
}

func TestFinalize_TwoPartyDenominator(t *testing.T) {
	in := result(450, 350, 200)

	total := New(DenominatorTotal).Finalize(in)
	if total.MarginPct != 10 {
		t.Errorf("total MarginPct = %v, want 10", total.MarginPct)
	}

	two := New(DenominatorTwoParty).Finalize(in)
	if two.MarginPct != 12.5 {
		t.Errorf("two-party MarginPct = %v, want 12.5", two.MarginPct)
	}

	if two.Competitiveness.Category != "Safe" || total.Competitiveness.Category != "Safe" {
		t.Errorf("categories = %s / %s", total.Competitiveness.Category, two.Competitiveness.Category)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		pct    float64
		winner string
		expect models.Competitiveness
	}{
		{45, "REP", models.Competitiveness{Category: "Annihilation", Party: "REP", Code: "REP_ANNIHILATION", Color: "#67000d"}},
		{40, "DEM", models.Competitiveness{Category: "Annihilation", Party: "DEM", Code: "DEM_ANNIHILATION", Color: "#08306b"}},
		{39.99, "DEM", models.Competitiveness{Category: "Dominant", Party: "DEM", Code: "DEM_DOMINANT", Color: "#08519c"}},
		{5.5, "REP", models.Competitiveness{Category: "Likely", Party: "REP", Code: "REP_LIKELY", Color: "#fb6a4a"}},
		{5.49, "REP", models.Competitiveness{Category: "Lean", Party: "REP", Code: "REP_LEAN", Color: "#fcae91"}},
		{0.5, "DEM", models.Competitiveness{Category: "Tilt", Party: "DEM", Code: "DEM_TILT", Color: "#e1f5fe"}},
		{0.49, "DEM", models.Competitiveness{Category: "Tossup", Party: "DEM", Code: "DEM_TOSSUP", Color: "#f7f7f7"}},
		{80, "TIE", models.Competitiveness{Category: "Tossup", Party: "TIE", Code: "TIE_TOSSUP", Color: "#f7f7f7"}},
	}

	for _, tt := range tests {
		t.Run(tt.expect.Code, func(t *testing.T) {
			if diff := cmp.Diff(tt.expect, Classify(tt.pct, tt.winner)); diff != "" {
				t.Errorf("Classify(%v, %s) mismatch (-want +got):\n%s", tt.pct, tt.winner, diff)
			}
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	for _, winner := range []string{"DEM", "REP"} {
		prev := Rank(Classify(0, winner).Category)

		for pct := 0.0; pct <= 100; pct += 0.01 {
			rank := Rank(Classify(Round2(pct), winner).Category)
			if rank > prev {
				t.Fatalf("%s: band moved down at %.2f", winner, pct)
			}

			prev = rank
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in     float64
		expect float64
	}{
		{11.1111, 11.11},
		{0.125, 0.13},
		{2.5, 2.5},
		{-0.125, -0.13},
	}

	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.expect {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.expect)
		}
	}
}

func TestParseDenominator(t *testing.T) {
	for _, in := range []string{"", "total", "TOTAL"} {
		if d, err := ParseDenominator(in); err != nil || d != DenominatorTotal {
			t.Errorf("ParseDenominator(%q) = %q, %v", in, d, err)
		}
	}

	if d, err := ParseDenominator("two_party"); err != nil || d != DenominatorTwoParty {
		t.Errorf("ParseDenominator(two_party) = %q, %v", d, err)
	}

	if _, err := ParseDenominator("weighted"); !errors.Is(err, ErrUnknownDenominator) {
		t.Errorf("ParseDenominator(weighted) error = %v", err)
	}
}
