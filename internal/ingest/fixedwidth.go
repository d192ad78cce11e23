package ingest

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"

	"kyrealign/internal/models"
)

var officePattern = regexp.MustCompile(`OFFICE:\s+[A-Z0-9/]+\s+(.*)`)

// minCountyMarkers is how many "*ABBR" tokens make a line a county header.
const minCountyMarkers = 3

// FixedWidthSource reads the legacy county-by-candidate text dumps:
//
//	OFFICE: A01/000/000 PRESIDENT AND VICE PRESIDENT
//	                     *ADAI   *ALLE   *ANDE
//	AL GORE              1,970   2,117   3,453
//
// Each candidate row carries one vote column per county in the most recent
// header. Counties are emitted as the raw abbreviation. Files are decoded
// as Latin-1.
type FixedWidthSource struct {
	SourceName string
	Path       string
	Year       int
	// InferParty, when set, assigns a party to each candidate since the
	// dumps carry none.
	InferParty func(candidate string) string
	// KeepZero keeps rows whose vote cell is zero.
	KeepZero bool
}

// NewFixedWidthSource creates a source for a text dump. A zero year is
// taken from the file name.
func NewFixedWidthSource(name, path string, year int) *FixedWidthSource {
	if name == "" {
		name = filepath.Base(path)
	}

	if year == 0 {
		year, _ = YearFromName(filepath.Base(path))
	}

	return &FixedWidthSource{SourceName: name, Path: path, Year: year}
}

func (s *FixedWidthSource) Name() string {
	return s.SourceName
}

func (s *FixedWidthSource) Records() iter.Seq2[models.RawRecord, error] {
	return func(yield func(models.RawRecord, error) bool) {
		if s.Year == 0 {
			yield(models.RawRecord{}, fmt.Errorf("%s: %w", s.SourceName, ErrNoYear))
			return
		}

		f, err := os.Open(s.Path)
		if err != nil {
			yield(models.RawRecord{}, fmt.Errorf("open %s: %w", filepath.Base(s.Path), err))
			return
		}
		defer f.Close()

		s.read(charmap.ISO8859_1.NewDecoder().Reader(f), yield)
	}
}

type dumpState struct {
	office     string
	officeOpen bool
	counties   []string
}

func (s *FixedWidthSource) read(r io.Reader, yield func(models.RawRecord, error) bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		st   dumpState
		line int
	)

	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(text)

		if st.officeOpen {
			st.officeOpen = false
			if isOfficeContinuation(trimmed) {
				st.office += " " + trimmed
				continue
			}
		}

		if strings.Contains(text, "OFFICE:") {
			if m := officePattern.FindStringSubmatch(text); m != nil {
				st.office = strings.TrimSpace(m[1])
				st.officeOpen = true
				st.counties = nil
			}

			continue
		}

		if trimmed == "" || strings.Contains(text, "OFFICE") {
			continue
		}

		if strings.Count(text, "*") >= minCountyMarkers {
			st.counties = countyHeader(text)
			continue
		}

		if st.office == "" || len(st.counties) == 0 {
			continue
		}

		candidate, votes, ok := splitVoteRow(trimmed, len(st.counties))
		if !ok {
			continue
		}

		party := ""
		if s.InferParty != nil {
			party = s.InferParty(candidate)
		}

		for i, county := range st.counties {
			if votes[i] == 0 && !s.KeepZero {
				continue
			}

			rec := models.RawRecord{
				Source:    s.SourceName,
				Line:      line,
				Year:      s.Year,
				County:    county,
				Office:    st.office,
				Candidate: candidate,
				Party:     party,
				Votes:     votes[i],
			}

			if !yield(rec, nil) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		yield(models.RawRecord{}, fmt.Errorf("scan %s: %w", s.SourceName, err))
	}
}

// isOfficeContinuation reports whether a line continues a wrapped office
// title: non-blank, not starting with an upper-case letter, and not a
// county header.
func isOfficeContinuation(trimmed string) bool {
	if trimmed == "" || strings.Contains(trimmed, "*") {
		return false
	}

	first := []rune(trimmed)[0]

	return !unicode.IsUpper(first)
}

func countyHeader(text string) []string {
	var out []string

	for _, tok := range strings.Fields(text) {
		if abbr, ok := strings.CutPrefix(tok, "*"); ok && abbr != "" {
			out = append(out, abbr)
		}
	}

	return out
}

// splitVoteRow treats the last n fields as vote cells. The row qualifies
// only when all of them parse and a candidate name of at least two
// characters precedes them.
func splitVoteRow(trimmed string, n int) (string, []int, bool) {
	parts := strings.Fields(trimmed)
	if len(parts) <= n {
		return "", nil, false
	}

	votes := make([]int, n)
	for i, cell := range parts[len(parts)-n:] {
		v, ok := ParseVotes(cell)
		if !ok || strings.ContainsAny(cell, ".") {
			return "", nil, false
		}

		votes[i] = v
	}

	candidate := strings.Join(parts[:len(parts)-n], " ")
	if len([]rune(candidate)) < 2 {
		return "", nil, false
	}

	return candidate, votes, true
}
