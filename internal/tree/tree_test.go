package tree

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kyrealign/internal/margin"
	"kyrealign/internal/models"
)

func sample() []models.CountyContestResult {
	mk := func(year int, office, district, county string, dem, rep int) models.CountyContestResult {
		r := models.NewCountyContestResult(models.NewContestKey(year, office, district), county)
		r.DemVotes, r.RepVotes, r.TotalVotes = dem, rep, dem+rep
		r.DemCandidate, r.RepCandidate = "D & Co", "R"

		return margin.Finalize(*r)
	}

	return []models.CountyContestResult{
		mk(2020, "President", "", "Jefferson", 60000, 40000),
		mk(2020, "President", "", "Adair", 1000, 5000),
		mk(2019, "Governor", "", "Hardin", 10000, 12500),
		mk(2022, "U.S. Senate", "Unexpired", "Boyd", 10, 20),
	}
}

func TestBuild_Shape(t *testing.T) {
	tr := Build(sample())

	c := tr.ResultsByYear["2022"]["U.S. Senate"]["U.S. Senate - Unexpired"]
	if c == nil {
		t.Fatal("district contest missing")
	}

	if c.Results["Boyd"].ContestName != "U.S. Senate" {
		t.Errorf("ContestName = %q", c.Results["Boyd"].ContestName)
	}

	stats := tr.Stats()
	want := Stats{Years: []string{"2019", "2020", "2022"}, Contests: 3, Results: 4, Counties: 4}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	rows := sample()
	first, err := Marshal(Build(rows), true)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	reversed := make([]models.CountyContestResult, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}

	second, err := Marshal(Build(reversed), true)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("insertion order changed the serialized tree")
	}

	if !bytes.HasSuffix(first, []byte("}\n")) {
		t.Error("output should end with a newline")
	}

	if !bytes.Contains(first, []byte(`"D & Co"`)) {
		t.Error("candidate names should not be HTML-escaped")
	}

	if bytes.Index(first, []byte(`"Adair"`)) > bytes.Index(first, []byte(`"Jefferson"`)) {
		t.Error("county keys are not sorted")
	}
}

func TestMarshal_FieldLayout(t *testing.T) {
	data, err := Marshal(Build(sample()[:1]), false)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc map[string]map[string]map[string]map[string]map[string]map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	rec := doc["results_by_year"]["2020"]["President"]["President"]["results"]["Jefferson"]

	for _, field := range []string{
		"contest_name", "year", "county", "dem_votes", "rep_votes", "other_votes", "total_votes",
		"two_party_total", "dem_candidate", "rep_candidate", "winner", "margin", "margin_pct",
		"competitiveness", "all_parties",
	} {
		if _, ok := rec[field]; !ok {
			t.Errorf("field %q missing", field)
		}
	}

	if len(rec) != 15 {
		t.Errorf("record has %d fields, want 15", len(rec))
	}

	if strings.Contains(string(data), "Contest") {
		t.Error("grouping key leaked into output")
	}
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	tr := Build(sample())

	data, err := Write(path, tr, true)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if !bytes.Equal(data, onDisk) {
		t.Error("returned bytes differ from file contents")
	}

	back, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if diff := cmp.Diff(tr, back); diff != "" {
		t.Errorf("tree mismatch after reload (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	for _, in := range []string{`{`, `{"results_by_year":{"20x0":{}}}`, `{"results_by_year":{"2020":{"Governor":{"Governor":null}}}}`} {
		if _, err := Unmarshal([]byte(in)); err == nil {
			t.Errorf("Unmarshal(%s) expected error", in)
		}
	}
}
