// Package history persists finished task runs to a local sqlite database,
// so that every Director run, success or failure, leaves an audit trail
// of what was attempted, how many API calls and replans it consumed, and
// which steps completed before it finished.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ciuagent/ciuagent/model"
)

// Store is a sqlite-backed audit log of Director task runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one file

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS task_runs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			task_description TEXT NOT NULL,
			success          INTEGER NOT NULL,
			plans_used       INTEGER NOT NULL,
			api_calls_used   INTEGER NOT NULL,
			final_error      TEXT,
			final_error_kind TEXT,
			completed_steps  TEXT NOT NULL,
			finished_at      DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// RecordTask persists one finished TaskResult. It satisfies
// director.HistoryRecorder.
func (s *Store) RecordTask(ctx context.Context, result model.TaskResult) error {
	stepsJSON, err := json.Marshal(result.CompletedSteps)
	if err != nil {
		return fmt.Errorf("history: marshal completed steps: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_runs (task_description, success, plans_used, api_calls_used, final_error, final_error_kind, completed_steps, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.TaskDescription,
		boolToInt(result.Success),
		result.PlansUsed,
		result.APICallsUsed,
		nullableString(result.FinalError),
		nullableString(string(result.FinalErrorKind)),
		string(stepsJSON),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("history: record task: %w", err)
	}
	return nil
}

// Run is one row of the task run audit log.
type Run struct {
	ID              int64
	TaskDescription string
	Success         bool
	PlansUsed       int
	APICallsUsed    int
	FinalError      string
	FinalErrorKind  string
	CompletedSteps  []model.TaskStep
	FinishedAt      time.Time
}

// Recent returns the most recently finished runs, newest first, up to
// limit rows.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_description, success, plans_used, api_calls_used, final_error, final_error_kind, completed_steps, finished_at
		FROM task_runs ORDER BY finished_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var successInt int
		var finalError, finalErrorKind sql.NullString
		var stepsJSON string
		if err := rows.Scan(&r.ID, &r.TaskDescription, &successInt, &r.PlansUsed, &r.APICallsUsed, &finalError, &finalErrorKind, &stepsJSON, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Success = successInt != 0
		r.FinalError = finalError.String
		r.FinalErrorKind = finalErrorKind.String
		if err := json.Unmarshal([]byte(stepsJSON), &r.CompletedSteps); err != nil {
			return nil, fmt.Errorf("history: unmarshal completed steps: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate recent: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
