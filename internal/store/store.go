// Package store exports a finished run to SQLite for ad hoc querying.
//
// The database is rebuilt on every export; it is never read back by the
// pipeline.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"kyrealign/internal/aggregate"
	"kyrealign/internal/models"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var ErrNotFound = errors.New("result not found")

const schema = `
CREATE TABLE IF NOT EXISTS county_results (
	year             INTEGER NOT NULL,
	office           TEXT    NOT NULL,
	contest          TEXT    NOT NULL,
	county           TEXT    NOT NULL,
	dem_votes        INTEGER NOT NULL,
	rep_votes        INTEGER NOT NULL,
	other_votes      INTEGER NOT NULL,
	total_votes      INTEGER NOT NULL,
	two_party_total  INTEGER NOT NULL,
	dem_candidate    TEXT    NOT NULL,
	rep_candidate    TEXT    NOT NULL,
	winner           TEXT    NOT NULL,
	margin           INTEGER NOT NULL,
	margin_pct       REAL    NOT NULL,
	category         TEXT    NOT NULL,
	code             TEXT    NOT NULL,
	color            TEXT    NOT NULL,
	PRIMARY KEY (year, office, contest, county)
);
CREATE INDEX IF NOT EXISTS idx_county_results_county ON county_results(county, year);
CREATE TABLE IF NOT EXISTS rejections (
	reason  TEXT    PRIMARY KEY,
	records INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS unresolved_counties (
	raw        TEXT    PRIMARY KEY,
	records    INTEGER NOT NULL,
	suggestion TEXT    NOT NULL,
	similarity REAL    NOT NULL
);
CREATE TABLE IF NOT EXISTS sources (
	position INTEGER PRIMARY KEY,
	name     TEXT    NOT NULL,
	records  INTEGER NOT NULL,
	accepted INTEGER NOT NULL,
	error    TEXT    NOT NULL
);
`

type config struct {
	busyTimeout int
	synchronous string
	mkdirAll    bool
}

// Option customises Open.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(c *config) { c.synchronous = mode } }

// WithMkdirAll creates parent directories of the database path.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// Store is an open export database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, applies pragmas and creates
// the schema.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: 10_000, synchronous: "NORMAL"}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Export replaces the stored run with results and the rejection report in a
// single transaction. rep may be nil.
func (s *Store) Export(ctx context.Context, results []models.CountyContestResult, rep *aggregate.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"county_results", "rejections", "unresolved_counties", "sources"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("store: clear %s: %w", table, err)
		}
	}

	if err = insertResults(ctx, tx, results); err != nil {
		return err
	}

	if rep != nil {
		if err = insertReport(ctx, tx, rep); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}

	return nil
}

func insertResults(ctx context.Context, tx *sql.Tx, results []models.CountyContestResult) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO county_results (
		year, office, contest, county, dem_votes, rep_votes, other_votes, total_votes,
		two_party_total, dem_candidate, rep_candidate, winner, margin, margin_pct,
		category, code, color
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare results: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			r.Contest.Year, r.Contest.Office, r.Contest.Label, r.County,
			r.DemVotes, r.RepVotes, r.OtherVotes, r.TotalVotes, r.TwoPartyTotal,
			r.DemCandidate, r.RepCandidate, r.Winner, r.Margin, r.MarginPct,
			r.Competitiveness.Category, r.Competitiveness.Code, r.Competitiveness.Color,
		)
		if err != nil {
			return fmt.Errorf("store: insert %s/%s: %w", r.Contest, r.County, err)
		}
	}

	return nil
}

func insertReport(ctx context.Context, tx *sql.Tx, rep *aggregate.Report) error {
	for _, reason := range aggregate.Reasons {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rejections (reason, records) VALUES (?, ?)",
			string(reason), rep.Rejected[reason]); err != nil {
			return fmt.Errorf("store: insert rejection: %w", err)
		}
	}

	for _, u := range rep.Unresolved() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO unresolved_counties (raw, records, suggestion, similarity) VALUES (?, ?, ?, ?)",
			u.Raw, u.Count, u.Suggestion.County, u.Suggestion.Similarity); err != nil {
			return fmt.Errorf("store: insert unresolved: %w", err)
		}
	}

	for i, src := range rep.Sources {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sources (position, name, records, accepted, error) VALUES (?, ?, ?, ?, ?)",
			i, src.Name, src.Records, src.Accepted, src.Err); err != nil {
			return fmt.Errorf("store: insert source: %w", err)
		}
	}

	return nil
}

// CountyResult loads one exported row.
func (s *Store) CountyResult(ctx context.Context, year int, office, contest, county string) (models.CountyContestResult, error) {
	r := models.NewCountyContestResult(models.ContestKey{Year: year, Office: office, Label: contest}, county)

	err := s.db.QueryRowContext(ctx, `SELECT dem_votes, rep_votes, other_votes, total_votes, two_party_total,
		dem_candidate, rep_candidate, winner, margin, margin_pct, category, code, color
		FROM county_results WHERE year = ? AND office = ? AND contest = ? AND county = ?`,
		year, office, contest, county,
	).Scan(
		&r.DemVotes, &r.RepVotes, &r.OtherVotes, &r.TotalVotes, &r.TwoPartyTotal,
		&r.DemCandidate, &r.RepCandidate, &r.Winner, &r.Margin, &r.MarginPct,
		&r.Competitiveness.Category, &r.Competitiveness.Code, &r.Competitiveness.Color,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CountyContestResult{}, ErrNotFound
	}

	if err != nil {
		return models.CountyContestResult{}, fmt.Errorf("store: query result: %w", err)
	}

	r.Competitiveness.Party = r.Winner

	return *r, nil
}

// Rejections returns the stored rejection counts.
func (s *Store) Rejections(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT reason, records FROM rejections")
	if err != nil {
		return nil, fmt.Errorf("store: query rejections: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			reason string
			n      int
		)

		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("store: scan rejection: %w", err)
		}

		out[reason] = n
	}

	return out, rows.Err()
}

// Count returns the number of rows in county_results.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM county_results").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}

	return n, nil
}
