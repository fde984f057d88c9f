// Package journal keeps a local history of sync runs in sqlite. It is
// observability only: the sync path never reads it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one recorded sync invocation.
type Run struct {
	ID          string
	WorkspaceID string
	StartedAt   time.Time
	FinishedAt  *time.Time
	TasksLoaded int
	Status      string
	Error       string
}

type Journal struct {
	db     *sql.DB
	logger zerolog.Logger
}

func Open(path string, logger *zerolog.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to journal: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create journal tables: %w", err)
	}

	l := logger.With().Str("component", "journal").Logger()
	l.Debug().Str("path", path).Msg("journal opened")
	return &Journal{db: db, logger: l}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sync_runs (
            id TEXT PRIMARY KEY,
            workspace_id TEXT NOT NULL,
            started_at DATETIME NOT NULL,
            finished_at DATETIME,
            tasks_loaded INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'running',
            error TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Begin records the start of a run.
func (j *Journal) Begin(ctx context.Context, runID, workspaceID string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, workspace_id, started_at, status) VALUES (?, ?, ?, ?)`,
		runID, workspaceID, time.Now().UTC(), StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	return nil
}

// Finish marks a run completed with the number of rows loaded.
func (j *Journal) Finish(ctx context.Context, runID string, tasksLoaded int) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE sync_runs SET finished_at = ?, tasks_loaded = ?, status = ? WHERE id = ?`,
		time.Now().UTC(), tasksLoaded, StatusCompleted, runID,
	)
	if err != nil {
		return fmt.Errorf("journal finish: %w", err)
	}
	return nil
}

// Fail marks a run failed with the error text.
func (j *Journal) Fail(ctx context.Context, runID string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	_, err := j.db.ExecContext(ctx,
		`UPDATE sync_runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), StatusFailed, message, runID,
	)
	if err != nil {
		return fmt.Errorf("journal fail: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, workspace_id, started_at, finished_at, tasks_loaded, status, COALESCE(error, '')
         FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.WorkspaceID, &run.StartedAt, &finished, &run.TasksLoaded, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
