package models

// Winner values.
const (
	WinnerDEM = "DEM"
	WinnerREP = "REP"
	WinnerTIE = "TIE"
)

// Competitiveness is the map banding for one county result.
type Competitiveness struct {
	Category string `json:"category"`
	Party    string `json:"party"`
	Code     string `json:"code"`
	Color    string `json:"color"`
}

// CountyContestResult is the per-county aggregate for one contest.
type CountyContestResult struct {
	ContestName     string          `json:"contest_name"`
	Year            int             `json:"year"`
	County          string          `json:"county"`
	DemVotes        int             `json:"dem_votes"`
	RepVotes        int             `json:"rep_votes"`
	OtherVotes      int             `json:"other_votes"`
	TotalVotes      int             `json:"total_votes"`
	TwoPartyTotal   int             `json:"two_party_total"`
	DemCandidate    string          `json:"dem_candidate"`
	RepCandidate    string          `json:"rep_candidate"`
	Winner          string          `json:"winner"`
	Margin          int             `json:"margin"`
	MarginPct       float64         `json:"margin_pct"`
	Competitiveness Competitiveness `json:"competitiveness"`
	AllParties      map[string]int  `json:"all_parties"`

	// Contest is the grouping key; it is not part of the serialized record.
	Contest ContestKey `json:"-"`
}

// NewCountyContestResult returns a zeroed result for a contest and county.
func NewCountyContestResult(key ContestKey, county string) *CountyContestResult {
	return &CountyContestResult{
		Contest:     key,
		ContestName: key.Office,
		Year:        key.Year,
		County:      county,
		AllParties:  map[string]int{},
	}
}
