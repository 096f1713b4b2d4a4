// Package history persists compile step results in SQLite so operators can
// inspect past hook runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one persisted step execution.
type Record struct {
	ID          int64
	RunID       string
	Step        string
	Tool        string
	Outcome     string
	Duration    time.Duration
	Fingerprint string
	Commit      string
	Dirty       bool
	CreatedAt   time.Time
}

// Store persists step records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (and initializes) a SQLite-backed history store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS step_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step TEXT NOT NULL,
		tool TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		fingerprint TEXT,
		commit_hash TEXT,
		dirty INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON step_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_created_at ON step_results(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new step record to the store.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := 0
	if rec.Dirty {
		dirty = 1
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO step_results (run_id, step, tool, outcome, duration_ms, fingerprint, commit_hash, dirty, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.RunID, rec.Step, rec.Tool, rec.Outcome, rec.Duration.Milliseconds(), rec.Fingerprint, rec.Commit, dirty, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert step result: %w", err)
	}

	return nil
}

// ByRunID retrieves all step records for a specific run.
func (s *Store) ByRunID(ctx context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, step, tool, outcome, duration_ms, fingerprint, commit_hash, dirty, created_at FROM step_results WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	return s.scanRecords(rows)
}

// Recent retrieves the most recent step records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, step, tool, outcome, duration_ms, fingerprint, commit_hash, dirty, created_at FROM step_results ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	return s.scanRecords(rows)
}

func (s *Store) scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var durationMS int64
		var dirty int
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Step, &rec.Tool, &rec.Outcome,
			&durationMS, &rec.Fingerprint, &rec.Commit, &dirty, &createdAt); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Dirty = dirty != 0
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
