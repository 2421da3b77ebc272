package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded pipeline execution.
type Run struct {
	SessionID     string
	Problem       string
	Folder        string
	Attempts      int
	ApprovalState string // Accepted | ExhaustedAccepted | Failed
	FinalVideo    string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store indexes completed pipeline runs in a local SQLite database so past
// sessions can be found without walking the output directory.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		session_id TEXT PRIMARY KEY,
		problem TEXT NOT NULL,
		folder TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		approval_state TEXT NOT NULL,
		final_video TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record inserts one finished run.
func (s *Store) Record(ctx context.Context, run Run) error {
	query := `
		INSERT INTO runs (session_id, problem, folder, attempts, approval_state, final_video, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.SessionID, run.Problem, run.Folder, run.Attempts,
		run.ApprovalState, run.FinalVideo,
		run.StartedAt.Unix(), run.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT session_id, problem, folder, attempts, approval_state, final_video, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finalVideo sql.NullString
		var started, finished int64

		if err := rows.Scan(
			&run.SessionID, &run.Problem, &run.Folder, &run.Attempts,
			&run.ApprovalState, &finalVideo, &started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		run.FinalVideo = finalVideo.String
		run.StartedAt = time.Unix(started, 0)
		run.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
