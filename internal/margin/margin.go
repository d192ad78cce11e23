// Package margin derives winner, margin and competitiveness banding from
// accumulated county vote sums.
package margin

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"kyrealign/internal/models"
)

var ErrUnknownDenominator = errors.New("unknown margin denominator")

// Denominator selects the base margin_pct is computed against.
type Denominator string

const (
	// DenominatorTotal divides by every vote cast, including other parties.
	DenominatorTotal Denominator = "total"
	// DenominatorTwoParty divides by dem + rep votes only.
	DenominatorTwoParty Denominator = "two_party"
)

// ParseDenominator validates a configured denominator. Empty means total.
func ParseDenominator(s string) (Denominator, error) {
	switch Denominator(strings.ToLower(strings.TrimSpace(s))) {
	case "", DenominatorTotal:
		return DenominatorTotal, nil
	case DenominatorTwoParty:
		return DenominatorTwoParty, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownDenominator, s)
}

// Band is one competitiveness step.
type Band struct {
	Category string
	Min      float64
	RepColor string
	DemColor string
}

// Bands are evaluated top-down; the first band whose Min is reached wins.
var Bands = []Band{
	{Category: "Annihilation", Min: 40, RepColor: "#67000d", DemColor: "#08306b"},
	{Category: "Dominant", Min: 30, RepColor: "#a50f15", DemColor: "#08519c"},
	{Category: "Stronghold", Min: 20, RepColor: "#cb181d", DemColor: "#3182bd"},
	{Category: "Safe", Min: 10, RepColor: "#ef3b2c", DemColor: "#6baed6"},
	{Category: "Likely", Min: 5.5, RepColor: "#fb6a4a", DemColor: "#9ecae1"},
	{Category: "Lean", Min: 1, RepColor: "#fcae91", DemColor: "#c6dbef"},
	{Category: "Tilt", Min: 0.5, RepColor: "#fee8c8", DemColor: "#e1f5fe"},
	{Category: "Tossup", Min: math.Inf(-1), RepColor: "#f7f7f7", DemColor: "#f7f7f7"},
}

// TieColor is the neutral color used for tied counties.
const TieColor = "#f7f7f7"

// Rank returns the band index for a category, 0 being Annihilation, or -1.
func Rank(category string) int {
	for i, b := range Bands {
		if b.Category == category {
			return i
		}
	}

	return -1
}

// Classify bands marginPct for the given winner.
func Classify(marginPct float64, winner string) models.Competitiveness {
	if winner == models.WinnerTIE {
		return models.Competitiveness{
			Category: "Tossup",
			Party:    models.WinnerTIE,
			Code:     "TIE_TOSSUP",
			Color:    TieColor,
		}
	}

	band := Bands[len(Bands)-1]
	for _, b := range Bands {
		if marginPct >= b.Min {
			band = b
			break
		}
	}

	color := band.RepColor
	if winner == models.WinnerDEM {
		color = band.DemColor
	}

	return models.Competitiveness{
		Category: band.Category,
		Party:    winner,
		Code:     winner + "_" + strings.ToUpper(band.Category),
		Color:    color,
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Calculator finalizes results with a fixed denominator.
type Calculator struct {
	denominator Denominator
}

// New returns a calculator. An empty denominator means total.
func New(d Denominator) *Calculator {
	if d == "" {
		d = DenominatorTotal
	}

	return &Calculator{denominator: d}
}

// Denominator returns the configured denominator.
func (c *Calculator) Denominator() Denominator {
	return c.denominator
}

// Finalize derives the computed fields from the vote sums. The input is not
// modified; the returned copy owns a fresh all_parties map.
func (c *Calculator) Finalize(in models.CountyContestResult) models.CountyContestResult {
	out := in
	out.TwoPartyTotal = in.DemVotes + in.RepVotes
	out.Margin = in.DemVotes - in.RepVotes

	base := in.TotalVotes
	if c.denominator == DenominatorTwoParty {
		base = out.TwoPartyTotal
	}

	out.MarginPct = 0
	if base > 0 {
		out.MarginPct = Round2(math.Abs(float64(out.Margin)) / float64(base) * 100)
	}

	switch {
	case out.Margin > 0:
		out.Winner = models.WinnerDEM
	case out.Margin < 0:
		out.Winner = models.WinnerREP
	default:
		out.Winner = models.WinnerTIE
	}

	out.Competitiveness = Classify(out.MarginPct, out.Winner)

	out.AllParties = make(map[string]int, 3)
	for code, v := range map[string]int{"DEM": in.DemVotes, "REP": in.RepVotes, "OTHER": in.OtherVotes} {
		if v != 0 {
			out.AllParties[code] = v
		}
	}

	return out
}

// Finalize applies the default total-vote denominator.
func Finalize(in models.CountyContestResult) models.CountyContestResult {
	return New(DenominatorTotal).Finalize(in)
}
