// Package storage provides SQLite-based persistence for finished races.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/racehub/internal/race"
)

// Store manages the SQLite database connection for race persistence.
type Store struct {
	db *sql.DB
}

// RaceSummary is one persisted race.
type RaceSummary struct {
	ID         int64
	RaceID     string
	Rounds     int
	Racers     int
	Finishers  int
	StartedAt  time.Time
	FinishedAt time.Time
	CreatedAt  time.Time
}

// Duration returns how long the race ran.
func (r RaceSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ResultRow is one line of a persisted race's standings.
type ResultRow struct {
	RaceID        string
	Position      int
	ParticipantID int
	Name          string
	TimeMs        *int64 // nil for DNF
}

// LeaderboardEntry is the best recorded time for a racer name.
type LeaderboardEntry struct {
	Name     string
	BestMs   int64
	Finishes int
	Races    int
}

// Stats contains aggregated statistics across all races.
type Stats struct {
	Races     int
	Finishes  int
	BestMs    int64
	LastRace  time.Time
	HasRecord bool
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// Recorders run concurrently; SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS races (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			race_id TEXT NOT NULL UNIQUE,
			rounds INTEGER NOT NULL,
			racers INTEGER NOT NULL,
			finishers INTEGER NOT NULL,
			started_at_ms INTEGER NOT NULL,
			finished_at_ms INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_races_finished ON races(finished_at_ms DESC);

		CREATE TABLE IF NOT EXISTS race_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			race_id TEXT NOT NULL REFERENCES races(race_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			participant_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			time_ms INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_race_results_race ON race_results(race_id, position);
		CREATE INDEX IF NOT EXISTS idx_race_results_name ON race_results(name, time_ms);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRace records a finished race and its standings in one transaction.
// Returns the ID of the inserted race row.
func (s *Store) SaveRace(rec race.RaceRecord) (int64, error) {
	if rec.RaceID == "" {
		return 0, errors.New("storage: race id is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	finishers := 0
	for _, r := range rec.Results {
		if r.Finished() {
			finishers++
		}
	}

	res, err := tx.Exec(
		`INSERT INTO races (race_id, rounds, racers, finishers, started_at_ms, finished_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RaceID,
		rec.Rounds,
		len(rec.Results),
		finishers,
		rec.StartedAt.UnixMilli(),
		rec.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save race: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	for i, r := range rec.Results {
		var timeMs sql.NullInt64
		if e := r.Entry(); e.Time != nil {
			timeMs = sql.NullInt64{Int64: *e.Time, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO race_results (race_id, position, participant_id, name, time_ms)
			 VALUES (?, ?, ?, ?, ?)`,
			rec.RaceID, i+1, int(r.ID), r.Name, timeMs,
		); err != nil {
			return 0, fmt.Errorf("storage: cannot save result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: cannot commit race: %w", err)
	}
	return id, nil
}

// RecordRace implements race.ResultRecorder.
func (s *Store) RecordRace(rec race.RaceRecord) error {
	_, err := s.SaveRace(rec)
	return err
}

// Ensure Store implements ResultRecorder
var _ race.ResultRecorder = (*Store)(nil)

// RaceByID retrieves a race by its race ID. Returns nil if it does not exist.
func (s *Store) RaceByID(raceID string) (*RaceSummary, error) {
	row := s.db.QueryRow(
		`SELECT id, race_id, rounds, racers, finishers, started_at_ms, finished_at_ms, created_at
		 FROM races
		 WHERE race_id = ?`,
		raceID,
	)
	summary, err := scanRace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query race: %w", err)
	}
	return &summary, nil
}

// RecentRaces retrieves the most recently finished races.
func (s *Store) RecentRaces(limit int) ([]RaceSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, race_id, rounds, racers, finishers, started_at_ms, finished_at_ms, created_at
		 FROM races
		 ORDER BY finished_at_ms DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query races: %w", err)
	}
	defer rows.Close()

	var races []RaceSummary
	for rows.Next() {
		summary, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		races = append(races, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return races, nil
}

// RaceResults retrieves the standings of one race in finishing order.
func (s *Store) RaceResults(raceID string) ([]ResultRow, error) {
	rows, err := s.db.Query(
		`SELECT race_id, position, participant_id, name, time_ms
		 FROM race_results
		 WHERE race_id = ?
		 ORDER BY position`,
		raceID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query results: %w", err)
	}
	defer rows.Close()

	var results []ResultRow
	for rows.Next() {
		var r ResultRow
		var timeMs sql.NullInt64
		if err := rows.Scan(&r.RaceID, &r.Position, &r.ParticipantID, &r.Name, &timeMs); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if timeMs.Valid {
			ms := timeMs.Int64
			r.TimeMs = &ms
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// Leaderboard returns the best finishing time per racer name, fastest first.
// Names that never finished are left out.
func (s *Store) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT name, MIN(time_ms), COUNT(time_ms), COUNT(*)
		 FROM race_results
		 GROUP BY name
		 HAVING COUNT(time_ms) > 0
		 ORDER BY MIN(time_ms) ASC, name ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.BestMs, &e.Finishes, &e.Races); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// GetStats retrieves aggregated statistics across every race.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	var best, last sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(finishers), 0), MAX(finished_at_ms) FROM races`,
	).Scan(&stats.Races, &stats.Finishes, &last)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get stats: %w", err)
	}

	err = s.db.QueryRow(`SELECT MIN(time_ms) FROM race_results`).Scan(&best)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get best time: %w", err)
	}

	if best.Valid {
		stats.BestMs = best.Int64
		stats.HasRecord = true
	}
	if last.Valid {
		stats.LastRace = time.UnixMilli(last.Int64)
	}
	return stats, nil
}

// ClearRaces deletes every persisted race.
func (s *Store) ClearRaces() error {
	if _, err := s.db.Exec("DELETE FROM race_results"); err != nil {
		return fmt.Errorf("storage: cannot clear results: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM races"); err != nil {
		return fmt.Errorf("storage: cannot clear races: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRace(row rowScanner) (RaceSummary, error) {
	var r RaceSummary
	var startedMs, finishedMs int64
	var createdAt any
	if err := row.Scan(
		&r.ID,
		&r.RaceID,
		&r.Rounds,
		&r.Racers,
		&r.Finishers,
		&startedMs,
		&finishedMs,
		&createdAt,
	); err != nil {
		return RaceSummary{}, err
	}
	r.StartedAt = time.UnixMilli(startedMs)
	r.FinishedAt = time.UnixMilli(finishedMs)
	r.CreatedAt = parseTimestamp(createdAt)
	return r, nil
}

// parseTimestamp handles both time.Time and string DATETIME values.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
