// Package ingest reads election result sources into models.RawRecord rows.
//
// Every reader exposes the same lazy, restartable sequence through the
// Source interface. Per-row problems never abort a source: unparseable vote
// cells are coerced to zero and flagged, and unreadable rows are yielded as
// *RowError values the caller may count and skip. Only a source that cannot
// be opened or lacks required columns stops early.
package ingest

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"regexp"
	"strconv"
	"strings"

	"kyrealign/internal/models"
)

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrEmptySource    = errors.New("source is empty")
	ErrNoYear         = errors.New("source year unknown")
)

// Source is a named, restartable sequence of raw records. Each call to
// Records starts again from the beginning of the source.
type Source interface {
	Name() string
	Records() iter.Seq2[models.RawRecord, error]
}

// RowError reports a row that could not be read. The source continues after it.
type RowError struct {
	Source string
	Line   int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// IsRowError reports whether err is a recoverable per-row error.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// ParseVotes cleans a vote cell: thousands separators and spaces are
// stripped and the remainder parsed as a non-negative integer. Whole-valued
// decimals such as "1200.0" are accepted. Anything else returns 0, false.
func ParseVotes(s string) (int, bool) {
	clean := strings.Map(func(r rune) rune {
		if r == ',' || r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}

		return r
	}, s)

	if clean == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(clean); err == nil {
		if n < 0 {
			return 0, false
		}

		return n, true
	}

	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}

	return int(f), true
}

var yearPattern = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)

// YearFromName extracts a four-digit election year from a file name such as
// "KY_2019_GENERAL.csv". Legacy dumps named "00gen" map to 2000.
func YearFromName(name string) (int, bool) {
	if m := yearPattern.FindStringSubmatch(name); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}

	if strings.Contains(strings.ToLower(name), "00gen") {
		return 2000, true
	}

	return 0, false
}

// SliceSource serves records from memory.
type SliceSource struct {
	SourceName string
	Rows       []models.RawRecord
}

// NewSliceSource wraps rows as a Source.
func NewSliceSource(name string, rows ...models.RawRecord) *SliceSource {
	return &SliceSource{SourceName: name, Rows: rows}
}

func (s *SliceSource) Name() string {
	return s.SourceName
}

func (s *SliceSource) Records() iter.Seq2[models.RawRecord, error] {
	return func(yield func(models.RawRecord, error) bool) {
		for i, r := range s.Rows {
			if r.Source == "" {
				r.Source = s.SourceName
			}

			if r.Line == 0 {
				r.Line = i + 1
			}

			if !yield(r, nil) {
				return
			}
		}
	}
}

// Collect drains a source into a slice, separating row errors from a
// terminal source error.
func Collect(src Source) ([]models.RawRecord, []error, error) {
	var (
		rows    []models.RawRecord
		rowErrs []error
	)

	for rec, err := range src.Records() {
		if err != nil {
			if IsRowError(err) {
				rowErrs = append(rowErrs, err)
				continue
			}

			return rows, rowErrs, err
		}

		rows = append(rows, rec)
	}

	return rows, rowErrs, nil
}
