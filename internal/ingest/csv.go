package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"kyrealign/internal/models"
	"kyrealign/pkg/textutil"
)

// ColumnAliases lists accepted header names per record field. Headers are
// compared after trimming and lower-casing.
type ColumnAliases struct {
	Year      []string `yaml:"year"`
	County    []string `yaml:"county"`
	Office    []string `yaml:"office"`
	District  []string `yaml:"district"`
	Candidate []string `yaml:"candidate"`
	Party     []string `yaml:"party"`
	Votes     []string `yaml:"votes"`
}

// DefaultColumnAliases returns the built-in header aliases.
func DefaultColumnAliases() ColumnAliases {
	return ColumnAliases{
		Year:      []string{"year", "election_year"},
		County:    []string{"county", "county_name", "jurisdiction"},
		Office:    []string{"office", "race", "contest"},
		District:  []string{"district", "dist"},
		Candidate: []string{"candidate", "candidate_name", "name"},
		Party:     []string{"party", "party_name", "affiliation"},
		Votes:     []string{"votes", "vote", "total_votes", "total"},
	}
}

// WithDefaults fills nil alias lists from DefaultColumnAliases.
func (c ColumnAliases) WithDefaults() ColumnAliases {
	d := DefaultColumnAliases()

	return ColumnAliases{
		Year:      pickStrings(c.Year, d.Year),
		County:    pickStrings(c.County, d.County),
		Office:    pickStrings(c.Office, d.Office),
		District:  pickStrings(c.District, d.District),
		Candidate: pickStrings(c.Candidate, d.Candidate),
		Party:     pickStrings(c.Party, d.Party),
		Votes:     pickStrings(c.Votes, d.Votes),
	}
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return fallback
	}

	return custom
}

type columnIndex struct {
	year, county, office, district, candidate, party, votes int
}

func resolveColumns(header []string, aliases ColumnAliases) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(textutil.CleanCell(h))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	find := func(names []string) int {
		for _, n := range names {
			if i, ok := pos[strings.ToLower(n)]; ok {
				return i
			}
		}

		return -1
	}

	idx := columnIndex{
		year:      find(aliases.Year),
		county:    find(aliases.County),
		office:    find(aliases.Office),
		district:  find(aliases.District),
		candidate: find(aliases.Candidate),
		party:     find(aliases.Party),
		votes:     find(aliases.Votes),
	}

	var missing []string
	for name, i := range map[string]int{
		"county":    idx.county,
		"office":    idx.office,
		"candidate": idx.candidate,
		"votes":     idx.votes,
	} {
		if i < 0 {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return idx, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return idx, nil
}

// CSVSource reads a delimited results export with one candidate-county row
// per line.
type CSVSource struct {
	SourceName string
	Path       string
	// Year overrides the year column; required when the file has none.
	Year    int
	Comma   rune
	Aliases ColumnAliases
}

// NewCSVSource creates a comma-separated source. Tab separation is used for
// .tsv files.
func NewCSVSource(name, path string, year int) *CSVSource {
	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}

	if name == "" {
		name = filepath.Base(path)
	}

	return &CSVSource{
		SourceName: name,
		Path:       path,
		Year:       year,
		Comma:      comma,
		Aliases:    DefaultColumnAliases(),
	}
}

func (s *CSVSource) Name() string {
	return s.SourceName
}

func (s *CSVSource) Records() iter.Seq2[models.RawRecord, error] {
	return func(yield func(models.RawRecord, error) bool) {
		f, err := os.Open(s.Path)
		if err != nil {
			yield(models.RawRecord{}, fmt.Errorf("open %s: %w", filepath.Base(s.Path), err))
			return
		}
		defer f.Close()

		s.read(f, yield)
	}
}

func (s *CSVSource) read(r io.Reader, yield func(models.RawRecord, error) bool) {
	reader := csv.NewReader(r)
	if s.Comma != 0 {
		reader.Comma = s.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		yield(models.RawRecord{}, fmt.Errorf("%s: %w", s.SourceName, ErrEmptySource))
		return
	}
	if err != nil {
		yield(models.RawRecord{}, fmt.Errorf("read %s header: %w", s.SourceName, err))
		return
	}

	idx, err := resolveColumns(header, s.Aliases.WithDefaults())
	if err != nil {
		yield(models.RawRecord{}, fmt.Errorf("%s: %w", s.SourceName, err))
		return
	}

	if idx.year < 0 && s.Year == 0 {
		yield(models.RawRecord{}, fmt.Errorf("%s: %w: no year column and no configured year", s.SourceName, ErrNoYear))
		return
	}

	line := 1
	for {
		row, err := reader.Read()
		line++

		if errors.Is(err, io.EOF) {
			return
		}

		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				if !yield(models.RawRecord{}, &RowError{Source: s.SourceName, Line: line, Err: err}) {
					return
				}

				continue
			}

			yield(models.RawRecord{}, fmt.Errorf("read %s: %w", s.SourceName, err))
			return
		}

		if isBlankRow(row) {
			continue
		}

		if !yield(s.record(row, idx, line), nil) {
			return
		}
	}
}

func (s *CSVSource) record(row []string, idx columnIndex, line int) models.RawRecord {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}

		return textutil.CleanCell(row[i])
	}

	rec := models.RawRecord{
		Source:    s.SourceName,
		Line:      line,
		County:    cell(idx.county),
		Office:    cell(idx.office),
		District:  normalizeDistrict(cell(idx.district)),
		Candidate: cell(idx.candidate),
		Party:     cell(idx.party),
		Year:      s.Year,
	}

	if s.Year == 0 {
		rec.Year = parseYear(cell(idx.year))
	}

	votes, ok := ParseVotes(cell(idx.votes))
	rec.Votes = votes
	rec.VotesMalformed = !ok

	return rec
}

// normalizeDistrict drops values exported by spreadsheets for empty cells.
func normalizeDistrict(d string) string {
	switch strings.ToLower(d) {
	case "", "nan", "none", "null", "n/a":
		return ""
	}

	if f, err := strconv.ParseFloat(d, 64); err == nil && f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}

	return textutil.NormalizeWhitespace(d)
}

func parseYear(s string) int {
	y, ok := ParseVotes(s)
	if !ok {
		return 0
	}

	return y
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if textutil.CleanCell(c) != "" {
			return false
		}
	}

	return true
}
