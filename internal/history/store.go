// Package history records transform runs in a SQLite database so that
// `programapi status` can show what was published and why a run failed.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the database file inside the .programapi directory.
const FileName = "history.db"

// Store provides SQLite-backed persistence for runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		event TEXT NOT NULL,
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		dry_run INTEGER NOT NULL DEFAULT 0,
		sessions INTEGER NOT NULL DEFAULT 0,
		speakers INTEGER NOT NULL DEFAULT 0,
		days INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.Exec(schema)
	return err
}

// StartRun records a new running run for event and returns it.
func (s *Store) StartRun(event string, dryRun bool) (*Run, error) {
	id := uuid.New().String()
	now := s.now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO runs (id, event, status, dry_run, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, event, StatusRunning, dryRun, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &Run{
		ID:        id,
		Event:     event,
		Status:    StatusRunning,
		DryRun:    dryRun,
		StartedAt: now,
	}, nil
}

// AddWarning records a warning for a run.
func (s *Store) AddWarning(runID, kind, message string) error {
	_, err := s.db.Exec(
		`INSERT INTO warnings (run_id, kind, message) VALUES (?, ?, ?)`,
		runID, kind, message,
	)
	if err != nil {
		return fmt.Errorf("insert warning: %w", err)
	}
	return nil
}

// Succeed marks a run as succeeded with the given counts.
func (s *Store) Succeed(runID string, counts Counts) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, sessions = ?, speakers = ?, days = ?, finished_at = ?
		 WHERE id = ?`,
		StatusSucceeded, counts.Sessions, counts.Speakers, counts.Days, s.now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// Fail marks a run as failed.
func (s *Store) Fail(runID, errorKind, message string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, error_kind = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		StatusFailed, errorKind, message, s.now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

const runColumns = `r.id, r.event, r.status, r.error_kind, r.error, r.dry_run,
	r.sessions, r.speakers, r.days, r.started_at, r.finished_at,
	(SELECT COUNT(*) FROM warnings w WHERE w.run_id = r.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
	)
	err := row.Scan(&run.ID, &run.Event, &run.Status, &run.ErrorKind, &run.Error, &run.DryRun,
		&run.Sessions, &run.Speakers, &run.Days, &run.StartedAt, &finished, &run.Warnings)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetRun retrieves a run by ID. Returns nil if it does not exist.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. An empty event
// lists runs of all events.
func (s *Store) ListRuns(event string, limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT `+runColumns+`
		 FROM runs r
		 WHERE ? = '' OR r.event = ?
		 ORDER BY r.started_at DESC, r.rowid DESC
		 LIMIT ?`,
		event, event, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return runs, nil
}

// GetWarnings retrieves all warnings of a run in insertion order.
func (s *Store) GetWarnings(runID string) ([]Warning, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, kind, message
		 FROM warnings
		 WHERE run_id = ?
		 ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var warnings []Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.ID, &w.RunID, &w.Kind, &w.Message); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		warnings = append(warnings, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return warnings, nil
}
