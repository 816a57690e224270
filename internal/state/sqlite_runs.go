package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CreateRun records the start of a run.
func (s *SQLiteStore) CreateRun(ctx context.Context, p RunParams) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &Run{
		ID:         generateID(),
		Task:       p.Task,
		SchemaYear: p.SchemaYear,
		DomainMode: p.DomainMode,
		Workspace:  p.Workspace,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("run_id", run.ID), slog.String("task", p.Task))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, task, schema_year, domain_mode, workspace, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Task, run.SchemaYear, run.DomainMode, run.Workspace, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// RecordTable stores the outcome of one table, replacing an earlier entry.
func (s *SQLiteStore) RecordTable(ctx context.Context, t RunTable) error {
	if s.db == nil {
		return errNotOpened
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_tables (run_id, table_name, row_count, findings, status, advisory)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Table, t.Rows, t.Findings, t.Status, nullString(t.Advisory),
	)
	if err != nil {
		return fmt.Errorf("failed to record table %s: %w", t.Table, err)
	}
	return nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, totalFindings int, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, total_findings = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), totalFindings, nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `id, task, schema_year, domain_mode, workspace, status, started_at, completed_at, total_findings, error`

// GetRun retrieves a run by id or by a unique id prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return scanRuns(rows)
}

// GetRunTables returns the tables of a run, sorted by name.
func (s *SQLiteStore) GetRunTables(ctx context.Context, id string) ([]RunTable, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, table_name, row_count, findings, status, advisory
		 FROM run_tables WHERE run_id = ? ORDER BY table_name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunTable
	for rows.Next() {
		var (
			t        RunTable
			advisory sql.NullString
		)
		if err := rows.Scan(&t.RunID, &t.Table, &t.Rows, &t.Findings, &t.Status, &advisory); err != nil {
			return nil, fmt.Errorf("failed to scan run table: %w", err)
		}
		t.Advisory = advisory.String
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Task, &run.SchemaYear, &run.DomainMode, &run.Workspace,
		&status, &run.StartedAt, &completedAt, &run.TotalFindings, &errMsg); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	defer func() { _ = rows.Close() }()
	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
