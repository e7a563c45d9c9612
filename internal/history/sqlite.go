package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, program_name, status, started_at, ended_at, steps_run, loop_iterations`

// SQLiteRepository implements Repository using SQLite.
//
// Pattern parameters are stored as JSON in the pattern_events table;
// all timestamps are stored as RFC3339 text in UTC.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordPatternEvent inserts a completed pattern run.
func (r *SQLiteRepository) RecordPatternEvent(ctx context.Context, ev PatternEvent) error {
	if ev.Pattern == "" {
		return fmt.Errorf("pattern name is required")
	}

	params, err := marshalParams(ev.Params)
	if err != nil {
		return fmt.Errorf("marshalling params: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO pattern_events (pattern, params, started_at, stopped_at) VALUES (?, ?, ?, ?)",
		ev.Pattern,
		params,
		ev.StartedAt.UTC().Format(time.RFC3339),
		ev.StoppedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting pattern event: %w", err)
	}
	return nil
}

// ListPatternEvents returns recent pattern runs, newest first.
// Limit defaults to 50 and is capped at 200.
func (r *SQLiteRepository) ListPatternEvents(ctx context.Context, limit int) ([]PatternEvent, error) {
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, pattern, params, started_at, stopped_at
		 FROM pattern_events
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pattern events: %w", err)
	}
	defer rows.Close()

	events := make([]PatternEvent, 0, limit)
	for rows.Next() {
		var ev PatternEvent
		var params sql.NullString
		var startedAt, stoppedAt string

		if err := rows.Scan(&ev.ID, &ev.Pattern, &params, &startedAt, &stoppedAt); err != nil {
			return nil, fmt.Errorf("scanning pattern event: %w", err)
		}

		if params.Valid && params.String != "" && params.String != "null" {
			if jsonErr := json.Unmarshal([]byte(params.String), &ev.Params); jsonErr != nil {
				return nil, fmt.Errorf("unmarshalling params: %w", jsonErr)
			}
		}

		if ev.StartedAt, err = parseTimestamp(startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if ev.StoppedAt, err = parseTimestamp(stoppedAt); err != nil {
			return nil, fmt.Errorf("parsing stopped_at: %w", err)
		}

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pattern events: %w", err)
	}
	return events, nil
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec Execution) error {
	if exec.ID == "" {
		return fmt.Errorf("execution id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO program_executions (
			id, program_name, status, started_at, ended_at, steps_run, loop_iterations
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.ProgramName,
		exec.Status,
		exec.StartedAt.UTC().Format(time.RFC3339),
		nullableTime(exec.EndedAt),
		exec.StepsRun,
		exec.LoopIterations,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution finalises an existing execution record. Only the
// status, end time and run tallies change; name and start time are
// fixed at creation.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec Execution) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE program_executions SET
			status = ?, ended_at = ?, steps_run = ?, loop_iterations = ?
		WHERE id = ?`,
		exec.Status,
		nullableTime(exec.EndedAt),
		exec.StepsRun,
		exec.LoopIterations,
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM program_executions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecutionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Execution{}, ErrExecutionNotFound
		}
		return Execution{}, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions returns recent executions, newest first.
// Limit defaults to 50 and is capped at 200.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, limit int) ([]Execution, error) {
	limit = clampLimit(limit)

	query := `SELECT ` + executionColumns + `
		FROM program_executions
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	executions := make([]Execution, 0, limit)
	for rows.Next() {
		exec, scanErr := scanExecutionRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, exec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// Prune deletes pattern events and executions older than the given
// duration, returning the total rows removed across both tables.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)

	var total int64
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM pattern_events WHERE stopped_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting pattern events: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		total += n
	}

	result, err = r.db.ExecContext(ctx,
		"DELETE FROM program_executions WHERE started_at < ?",
		cutoff,
	)
	if err != nil {
		return total, fmt.Errorf("deleting executions: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecutionRow(scanner rowScanner) (Execution, error) {
	var e Execution
	var startedAt string
	var endedAt sql.NullString

	err := scanner.Scan(
		&e.ID,
		&e.ProgramName,
		&e.Status,
		&startedAt,
		&endedAt,
		&e.StepsRun,
		&e.LoopIterations,
	)
	if err != nil {
		return Execution{}, err
	}

	if e.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return Execution{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if endedAt.Valid {
		t, parseErr := parseTimestamp(endedAt.String)
		if parseErr != nil {
			return Execution{}, fmt.Errorf("parsing ended_at: %w", parseErr)
		}
		e.EndedAt = &t
	}

	return e, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func marshalParams(params map[string]any) (sql.NullString, error) {
	if len(params) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
