// Package models defines the records that flow through the results pipeline.
package models

import "fmt"

// RawRecord is one row from a source file, before any canonicalization.
type RawRecord struct {
	Source    string `json:"source,omitempty"`
	County    string `json:"county"`
	Office    string `json:"office"`
	District  string `json:"district"`
	Candidate string `json:"candidate"`
	Party     string `json:"party"`
	Year      int    `json:"year"`
	Votes     int    `json:"votes"`
	Line      int    `json:"line,omitempty"`

	// VotesMalformed is set by readers when the vote cell could not be parsed
	// and Votes was coerced to 0.
	VotesMalformed bool `json:"-"`
}

// String identifies the record in log output.
func (r RawRecord) String() string {
	if r.Source == "" {
		return fmt.Sprintf("%d/%s/%s/%s", r.Year, r.Office, r.County, r.Candidate)
	}

	return fmt.Sprintf("%s:%d %d/%s/%s/%s", r.Source, r.Line, r.Year, r.Office, r.County, r.Candidate)
}

// ContestKey identifies a single race instance.
type ContestKey struct {
	Office string
	Label  string
	Year   int
}

// NewContestKey builds the key for an office label and optional district.
// The label is the office label unless a district is present, in which
// case it becomes "office - district".
func NewContestKey(year int, office, district string) ContestKey {
	label := office
	if district != "" {
		label = office + " - " + district
	}

	return ContestKey{Year: year, Office: office, Label: label}
}

// Less orders keys by year, office and label.
func (k ContestKey) Less(o ContestKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}

	if k.Office != o.Office {
		return k.Office < o.Office
	}

	return k.Label < o.Label
}

func (k ContestKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.Year, k.Office, k.Label)
}
