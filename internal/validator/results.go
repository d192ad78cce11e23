// Package validator checks a built results tree against the invariants the
// pipeline guarantees.
package validator

import (
	"errors"
	"fmt"
	"io"
	"maps"

	"kyrealign/internal/margin"
	"kyrealign/internal/models"
	"kyrealign/internal/tree"
)

// Validation errors.
var (
	ErrUnknownCounty    = errors.New("county is not canonical")
	ErrCountyMismatch   = errors.New("county field does not match its key")
	ErrPlacement        = errors.New("result is filed under the wrong year or office")
	ErrConservation     = errors.New("party buckets do not sum to total votes")
	ErrTwoPartyTotal    = errors.New("two_party_total does not equal dem + rep")
	ErrMarginSign       = errors.New("margin or winner inconsistent with votes")
	ErrMarginPct        = errors.New("margin_pct inconsistent with votes")
	ErrCompetitiveness  = errors.New("competitiveness does not match margin band")
	ErrAllParties       = errors.New("all_parties does not match non-zero buckets")
	ErrInvalidValidator = errors.New("validator requires a county set")
)

// CountySet reports membership in the canonical county set.
type CountySet interface {
	IsCanonical(name string) bool
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Err      error
	Location string
	Field    string
	Value    string
	Message  string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats contains validation statistics.
type ValidationStats struct {
	TotalResults   int
	ValidResults   int
	InvalidResults int
	EmptyResults   int
	Contests       int
}

// TreeValidator validates results trees.
type TreeValidator struct {
	counties CountySet
	calc     *margin.Calculator
}

// New creates a validator. A nil calculator uses the total-vote denominator.
func New(counties CountySet, calc *margin.Calculator) (*TreeValidator, error) {
	if counties == nil {
		return nil, ErrInvalidValidator
	}

	if calc == nil {
		calc = margin.New(margin.DenominatorTotal)
	}

	return &TreeValidator{counties: counties, calc: calc}, nil
}

// ValidateTree checks every county result in t.
func (v *TreeValidator) ValidateTree(t *tree.Tree) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}

	contests := make(map[string]bool)

	t.Walk(func(year, office, contest string, r models.CountyContestResult) {
		result.Stats.TotalResults++
		contests[year+"/"+office+"/"+contest] = true

		loc := fmt.Sprintf("%s/%s/%s/%s", year, office, contest, r.County)

		errs := v.validateResult(year, office, r)
		for i := range errs {
			errs[i].Location = loc
		}

		if len(errs) > 0 {
			result.Stats.InvalidResults++
			result.Errors = append(result.Errors, errs...)
		} else {
			result.Stats.ValidResults++
		}

		if r.TotalVotes == 0 {
			result.Stats.EmptyResults++
			result.Warnings = append(result.Warnings, loc+": no votes recorded")
		}
	})

	result.Stats.Contests = len(contests)
	result.IsValid = len(result.Errors) == 0

	return result
}

func (v *TreeValidator) validateResult(year, office string, r models.CountyContestResult) []ValidationError {
	var errs []ValidationError

	add := func(err error, field string, value any) {
		errs = append(errs, ValidationError{
			Err:     err,
			Field:   field,
			Value:   fmt.Sprint(value),
			Message: err.Error(),
		})
	}

	if !v.counties.IsCanonical(r.County) {
		add(ErrUnknownCounty, "county", r.County)
	}

	if fmt.Sprint(r.Year) != year || r.ContestName != office {
		add(ErrPlacement, "contest_name", fmt.Sprintf("%d %s", r.Year, r.ContestName))
	}

	if r.DemVotes < 0 || r.RepVotes < 0 || r.OtherVotes < 0 || r.DemVotes+r.RepVotes+r.OtherVotes != r.TotalVotes {
		add(ErrConservation, "total_votes", r.TotalVotes)
	}

	if r.TwoPartyTotal != r.DemVotes+r.RepVotes {
		add(ErrTwoPartyTotal, "two_party_total", r.TwoPartyTotal)
	}

	want := v.calc.Finalize(r)

	if r.Margin != want.Margin || r.Winner != want.Winner {
		add(ErrMarginSign, "winner", fmt.Sprintf("%s %d", r.Winner, r.Margin))
	}

	if r.MarginPct != want.MarginPct {
		add(ErrMarginPct, "margin_pct", r.MarginPct)
	}

	if r.Competitiveness != margin.Classify(r.MarginPct, r.Winner) {
		add(ErrCompetitiveness, "competitiveness", r.Competitiveness.Code)
	}

	if !maps.Equal(r.AllParties, want.AllParties) {
		add(ErrAllParties, "all_parties", r.AllParties)
	}

	return errs
}

// ValidateTree is a convenience wrapper using the total-vote denominator.
func ValidateTree(t *tree.Tree, counties CountySet) (*ValidationResult, error) {
	v, err := New(counties, nil)
	if err != nil {
		return nil, err
	}

	return v.ValidateTree(t), nil
}

// Err joins all validation errors, or returns nil for a valid result.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}

	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}

	return errors.Join(errs...)
}

// String returns a summary of validation results.
func (r *ValidationResult) String() string {
	status := "VALID"
	if !r.IsValid {
		status = "INVALID"
	}

	return fmt.Sprintf(
		"%s | Results: %d | Valid: %d | Invalid: %d | Contests: %d | Warnings: %d",
		status,
		r.Stats.TotalResults,
		r.Stats.ValidResults,
		r.Stats.InvalidResults,
		r.Stats.Contests,
		len(r.Warnings),
	)
}

// PrintErrors prints validation errors in readable format.
func (r *ValidationResult) PrintErrors(w io.Writer) {
	if len(r.Errors) == 0 {
		return
	}

	fmt.Fprintln(w, "Validation Errors:")

	for _, err := range r.Errors {
		fmt.Fprintf(w, "  %s", err.Location)

		if err.Field != "" {
			fmt.Fprintf(w, " [%s]", err.Field)
		}

		fmt.Fprintf(w, ": %s\n", err.Message)

		if err.Value != "" {
			fmt.Fprintf(w, "    Found: %q\n", err.Value)
		}
	}
}

// PrintWarnings prints validation warnings.
func (r *ValidationResult) PrintWarnings(w io.Writer) {
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Fprintln(w, "Validation Warnings:")

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", warn)
	}
}
