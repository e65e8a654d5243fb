// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of batch runs and the result of
// every job in them.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/polygonize/internal/polygonize"
	"github.com/pdiddy/polygonize/pkg/types"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// Run outcomes.
const (
	OutcomeRunning   = "running"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

const (
	// maxStderr bounds the captured stderr stored per job.
	maxStderr = 64 << 10

	// timeLayout is fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Run is one recorded batch run.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	InputDir   string     `json:"input_dir" yaml:"input_dir"`
	OutputDir  string     `json:"output_dir" yaml:"output_dir"`
	Workers    int        `json:"workers" yaml:"workers"`
	Discovered int        `json:"discovered" yaml:"discovered"`
	Converted  int        `json:"converted" yaml:"converted"`
	Skipped    int        `json:"skipped" yaml:"skipped"`
	Failed     int        `json:"failed" yaml:"failed"`
	Canceled   int        `json:"canceled" yaml:"canceled"`
	Outcome    string     `json:"outcome" yaml:"outcome"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Job is one recorded job result.
type Job struct {
	RunID    string          `json:"run_id" yaml:"run_id"`
	Input    string          `json:"input" yaml:"input"`
	Output   string          `json:"output" yaml:"output"`
	Status   types.JobStatus `json:"status" yaml:"status"`
	Duration time.Duration   `json:"duration" yaml:"duration"`
	Stderr   string          `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Ledger wraps the history database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			workers INTEGER NOT NULL,
			discovered INTEGER NOT NULL,
			converted INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			canceled INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			status TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			stderr TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_run_id ON jobs(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a run and returns its ID.
func (l *Ledger) BeginRun(ctx context.Context, inputDir, outputDir string, workers, discovered int) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input_dir, output_dir, workers, discovered, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, formatTime(time.Now()), inputDir, outputDir, workers, discovered, OutcomeRunning)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// RecordJob stores one job result under runID.
func (l *Ledger) RecordJob(ctx context.Context, runID string, res types.JobResult) error {
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}
	stderr := tail(res.Stderr, maxStderr)

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO jobs (run_id, input, output, status, duration_ms, stderr, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Input, res.Output, string(res.Status), res.Duration.Milliseconds(),
		nullString(stderr), nullString(errText))
	if err != nil {
		return fmt.Errorf("recording job %s: %w", res.Input, err)
	}
	return nil
}

// tail returns at most the last n bytes of s, starting on a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

// FinishRun stores the final counts and outcome of runID. runErr is the
// error the batch returned, if any.
func (l *Ledger) FinishRun(ctx context.Context, runID string, s polygonize.Summary, runErr error) error {
	outcome := OutcomeSucceeded
	var errText string
	if runErr != nil {
		errText = runErr.Error()
		outcome = OutcomeFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			outcome = OutcomeCanceled
		}
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, converted = ?, skipped = ?, failed = ?, canceled = ?,
		 outcome = ?, error = ? WHERE id = ?`,
		formatTime(time.Now()), s.Converted, s.Skipped, s.Failed, s.Canceled,
		outcome, nullString(errText), runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, input_dir, output_dir, workers, discovered,
	converted, skipped, failed, canceled, outcome, error`

// Runs returns the most recent runs, newest first. limit <= 0 means 20.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Jobs returns the jobs of runID in the order they completed. A non-empty
// status restricts the result to that status.
func (l *Ledger) Jobs(ctx context.Context, runID string, status types.JobStatus) ([]Job, error) {
	query := `SELECT run_id, input, output, status, duration_ms, stderr, error FROM jobs WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY rowid`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			j              Job
			status         string
			durationMS     int64
			stderr, errTxt sql.NullString
		)
		if err := rows.Scan(&j.RunID, &j.Input, &j.Output, &status, &durationMS, &stderr, &errTxt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		j.Status = types.JobStatus(status)
		j.Duration = time.Duration(durationMS) * time.Millisecond
		j.Stderr = stderr.String
		j.Error = errTxt.String
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
		errText  sql.NullString
	)
	err := s.Scan(&r.ID, &started, &finished, &r.InputDir, &r.OutputDir, &r.Workers, &r.Discovered,
		&r.Converted, &r.Skipped, &r.Failed, &r.Canceled, &r.Outcome, &errText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}

	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("parsing finished_at: %w", err)
		}
		r.FinishedAt = &t
	}
	r.Error = errText.String
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
