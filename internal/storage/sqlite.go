// Package storage provides SQLite-based persistence for search runs.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/hub"
	"github.com/vovakirdan/mars-lander/internal/sim"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("storage: run not found")

// Store manages the SQLite database connection for run persistence.
type Store struct {
	db *sql.DB
}

// Run is one recorded search.
type Run struct {
	ID             string        `json:"id"`
	LevelID        string        `json:"level_id"`
	Seed           int64         `json:"seed"`
	Population     int           `json:"population"`
	ChromosomeSize int           `json:"chromosome_size"`
	Policy         string        `json:"policy"`
	Generations    int           `json:"generations"`
	Found          bool          `json:"found"`
	Reason         string        `json:"reason"`
	FuelLeft       int           `json:"fuel_left"`
	Offset         int           `json:"offset"`
	Genes          string        `json:"genes"` // encoded solution
	Elapsed        time.Duration `json:"elapsed"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewRun summarizes a finished search on a level.
func NewRun(levelID string, seed int64, cfg genetic.Config, r sim.Result) Run {
	return Run{
		LevelID:        levelID,
		Seed:           seed,
		Population:     cfg.Size,
		ChromosomeSize: cfg.ChromosomeSize,
		Policy:         cfg.Policy,
		Generations:    r.Generation,
		Found:          r.Found,
		Reason:         r.Reason.String(),
		FuelLeft:       r.FuelLeft(),
		Offset:         r.Offset,
		Genes:          r.Solution().Encode(),
		Elapsed:        r.Elapsed,
	}
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
		CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			level_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			population INTEGER NOT NULL,
			chromosome_size INTEGER NOT NULL,
			policy TEXT NOT NULL,
			generations INTEGER NOT NULL,
			found INTEGER NOT NULL,
			reason TEXT NOT NULL,
			fuel_left INTEGER NOT NULL DEFAULT 0,
			offset_genes INTEGER NOT NULL DEFAULT 0,
			genes TEXT NOT NULL DEFAULT '',
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_level_id ON runs(level_id);
		CREATE INDEX IF NOT EXISTS idx_runs_best ON runs(level_id, found, fuel_left DESC);
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

// SaveRun records a run and returns its ID. A new UUID is assigned when
// run.ID is empty.
func (s *Store) SaveRun(run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.Exec(
		`INSERT INTO runs
		 (id, level_id, seed, population, chromosome_size, policy, generations,
		  found, reason, fuel_left, offset_genes, genes, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.LevelID,
		run.Seed,
		run.Population,
		run.ChromosomeSize,
		run.Policy,
		run.Generations,
		run.Found,
		run.Reason,
		run.FuelLeft,
		run.Offset,
		run.Genes,
		run.Elapsed.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("storage: cannot save run: %w", err)
	}

	return run.ID, nil
}

const runColumns = `id, level_id, seed, population, chromosome_size, policy, generations,
	found, reason, fuel_left, offset_genes, genes, elapsed_ms, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var elapsedMS int64
	var createdAt any

	err := row.Scan(
		&r.ID,
		&r.LevelID,
		&r.Seed,
		&r.Population,
		&r.ChromosomeSize,
		&r.Policy,
		&r.Generations,
		&r.Found,
		&r.Reason,
		&r.FuelLeft,
		&r.Offset,
		&r.Genes,
		&elapsedMS,
		&createdAt,
	)
	if err != nil {
		return Run{}, err
	}

	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// RunByID retrieves a run by its ID.
func (s *Store) RunByID(id string) (Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("storage: cannot query run: %w", err)
	}
	return r, nil
}

// RecentRuns retrieves the most recent runs across all levels.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRuns(
		`SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT ?`,
		limit,
	)
}

// RunsForLevel retrieves the most recent runs of one level.
func (s *Store) RunsForLevel(levelID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRuns(
		`SELECT `+runColumns+` FROM runs WHERE level_id = ? ORDER BY seq DESC LIMIT ?`,
		levelID, limit,
	)
}

// BestRun returns the successful run of a level that kept the most fuel,
// the earliest one on ties.
func (s *Store) BestRun(levelID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT `+runColumns+` FROM runs
		 WHERE level_id = ? AND found = 1
		 ORDER BY fuel_left DESC, seq ASC
		 LIMIT 1`,
		levelID,
	)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: no landing on level %s", ErrNotFound, levelID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("storage: cannot query best run: %w", err)
	}
	return r, nil
}

// ClearRuns deletes all runs of the given level.
func (s *Store) ClearRuns(levelID string) error {
	_, err := s.db.Exec("DELETE FROM runs WHERE level_id = ?", levelID)
	if err != nil {
		return fmt.Errorf("storage: cannot clear runs: %w", err)
	}
	return nil
}

func (s *Store) queryRuns(query string, args ...any) ([]Run, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// LevelStats contains aggregated statistics for a level.
type LevelStats struct {
	LevelID        string    `json:"level_id"`
	Runs           int       `json:"runs"`
	Landings       int       `json:"landings"`
	BestFuel       int       `json:"best_fuel"`
	AvgGenerations float64   `json:"avg_generations"`
	LastRun        time.Time `json:"last_run"`
}

// SuccessRate returns the share of runs that landed.
func (l LevelStats) SuccessRate() float64 {
	if l.Runs == 0 {
		return 0
	}
	return float64(l.Landings) / float64(l.Runs)
}

const statsColumns = `level_id, COUNT(*),
	COALESCE(SUM(found), 0),
	COALESCE(MAX(CASE WHEN found = 1 THEN fuel_left END), 0),
	COALESCE(AVG(generations), 0),
	MAX(created_at)`

// GetLevelStats retrieves aggregated statistics for a specific level.
func (s *Store) GetLevelStats(levelID string) (LevelStats, error) {
	row := s.db.QueryRow(
		`SELECT `+statsColumns+` FROM runs WHERE level_id = ? GROUP BY level_id`,
		levelID,
	)

	st, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return LevelStats{LevelID: levelID}, nil
	}
	if err != nil {
		return LevelStats{}, fmt.Errorf("storage: cannot get level stats: %w", err)
	}
	return st, nil
}

// GetAllLevelStats retrieves statistics for every level that has runs.
func (s *Store) GetAllLevelStats() (map[string]LevelStats, error) {
	rows, err := s.db.Query(`SELECT ` + statsColumns + ` FROM runs GROUP BY level_id`)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get all level stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]LevelStats)
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		stats[st.LevelID] = st
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return stats, nil
}

func scanStats(row rowScanner) (LevelStats, error) {
	var st LevelStats
	var lastRun any
	if err := row.Scan(&st.LevelID, &st.Runs, &st.Landings, &st.BestFuel, &st.AvgGenerations, &lastRun); err != nil {
		return LevelStats{}, err
	}
	st.LastRun = parseTime(lastRun)
	return st, nil
}

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
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

// SaveResult implements hub.ResultSaver.
// This adapter lets the hub record finished searches without a storage dependency.
func (s *Store) SaveResult(levelID string, seed int64, cfg genetic.Config, r sim.Result) (string, error) {
	return s.SaveRun(NewRun(levelID, seed, cfg, r))
}

// Ensure Store implements ResultSaver
var _ hub.ResultSaver = (*Store)(nil)
