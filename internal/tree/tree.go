// Package tree assembles finalized county results into the nested
// year -> office -> contest -> county document and serializes it.
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"kyrealign/internal/models"
)

// Contest holds the county results of one contest.
type Contest struct {
	Results map[string]models.CountyContestResult `json:"results"`
}

// Office maps contest labels to contests.
type Office map[string]*Contest

// Year maps office labels to offices.
type Year map[string]Office

// Tree is the persisted results document.
type Tree struct {
	ResultsByYear map[string]Year `json:"results_by_year"`
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{ResultsByYear: make(map[string]Year)}
}

// Build assembles results into a tree. A later result for the same
// contest and county replaces an earlier one.
func Build(results []models.CountyContestResult) *Tree {
	t := New()
	for _, r := range results {
		t.Add(r)
	}

	return t
}

// Add places one result in the tree.
func (t *Tree) Add(r models.CountyContestResult) {
	year := strconv.Itoa(r.Contest.Year)

	y, ok := t.ResultsByYear[year]
	if !ok {
		y = make(Year)
		t.ResultsByYear[year] = y
	}

	o, ok := y[r.Contest.Office]
	if !ok {
		o = make(Office)
		y[r.Contest.Office] = o
	}

	c, ok := o[r.Contest.Label]
	if !ok {
		c = &Contest{Results: make(map[string]models.CountyContestResult)}
		o[r.Contest.Label] = c
	}

	c.Results[r.County] = r
}

// Walk calls fn for every county result in year, office, contest and
// county order.
func (t *Tree) Walk(fn func(year, office, contest string, r models.CountyContestResult)) {
	for _, year := range slices.Sorted(maps.Keys(t.ResultsByYear)) {
		y := t.ResultsByYear[year]
		for _, office := range slices.Sorted(maps.Keys(y)) {
			o := y[office]
			for _, contest := range slices.Sorted(maps.Keys(o)) {
				c := o[contest]
				for _, county := range slices.Sorted(maps.Keys(c.Results)) {
					fn(year, office, contest, c.Results[county])
				}
			}
		}
	}
}

// Stats summarises the tree.
type Stats struct {
	Years    []string `json:"years"`
	Contests int      `json:"contests"`
	Results  int      `json:"results"`
	Counties int      `json:"counties"`
}

// Stats counts years, contests, results and distinct counties.
func (t *Tree) Stats() Stats {
	s := Stats{Years: slices.Sorted(maps.Keys(t.ResultsByYear))}
	counties := make(map[string]bool)

	for _, y := range t.ResultsByYear {
		for _, o := range y {
			s.Contests += len(o)
			for _, c := range o {
				s.Results += len(c.Results)
				for county := range c.Results {
					counties[county] = true
				}
			}
		}
	}

	s.Counties = len(counties)
	if s.Years == nil {
		s.Years = []string{}
	}

	return s
}

// Marshal serializes the tree. Map keys are emitted in sorted order, so
// equal trees always produce identical bytes. Output ends with a newline.
func Marshal(t *Tree, pretty bool) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("failed to encode results tree: %w", err)
	}

	return buf.Bytes(), nil
}

// Write serializes the tree to path, creating parent directories. The file
// is written to a temporary name and renamed into place. The written bytes
// are returned.
func Write(path string, t *Tree, pretty bool) ([]byte, error) {
	data, err := Marshal(t, pretty)
	if err != nil {
		return nil, err
	}

	if err := WriteFile(path, data); err != nil {
		return nil, err
	}

	return data, nil
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}

	return nil
}

// Read loads a serialized tree.
func Read(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results tree: %w", err)
	}

	return Unmarshal(data)
}

// Unmarshal parses a serialized tree. Contest keys are restored on every
// result from its position in the tree.
func Unmarshal(data []byte) (*Tree, error) {
	t := New()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse results tree: %w", err)
	}

	if t.ResultsByYear == nil {
		t.ResultsByYear = make(map[string]Year)
	}

	for yearStr, y := range t.ResultsByYear {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return nil, fmt.Errorf("invalid year key %q: %w", yearStr, err)
		}

		for office, o := range y {
			for label, c := range o {
				if c == nil {
					return nil, fmt.Errorf("contest %s/%s/%s has no results", yearStr, office, label)
				}

				for county, r := range c.Results {
					r.Contest = models.ContestKey{Year: year, Office: office, Label: label}
					if r.AllParties == nil {
						r.AllParties = map[string]int{}
					}

					c.Results[county] = r
				}
			}
		}
	}

	return t, nil
}
