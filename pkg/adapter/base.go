package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// ErrNotConnected is returned by every operation before Connect succeeds.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations and set Dialect
// before use.
type BaseSQLAdapter struct {
	DB      *sql.DB
	Cfg     core.AdapterConfig
	Logger  *slog.Logger
	Dialect Dialect
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// DialectName returns the adapter's SQL dialect name.
func (b *BaseSQLAdapter) DialectName() string {
	return b.Dialect.Name
}

func (b *BaseSQLAdapter) schema() string {
	if b.Cfg.Schema != "" {
		return b.Cfg.Schema
	}
	return b.Dialect.DefaultSchema
}

// ListTables returns base tables and views of the configured schema
// using information_schema.tables.
func (b *BaseSQLAdapter) ListTables(ctx context.Context) ([]string, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:gosec // placeholders come from the dialect
	query := fmt.Sprintf(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = %s
		ORDER BY table_name
	`, b.Dialect.FormatPlaceholder(1))

	rows, err := b.DB.QueryContext(ctx, query, b.schema())
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetTableMetadata provides the information_schema implementation shared
// by DuckDB and PostgreSQL.
func (b *BaseSQLAdapter) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	schema, tableName := b.Dialect.ParseQualifiedName(table)
	if !strings.Contains(table, ".") {
		schema = b.schema()
	}

	//nolint:gosec // placeholders come from the dialect
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			COALESCE(character_maximum_length, 0),
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, b.Dialect.FormatPlaceholder(1), b.Dialect.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &col.MaxLength, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	count, err := b.RowCount(ctx, table)
	if err != nil {
		return nil, err
	}

	return &core.TableMetadata{
		Schema:   schema,
		Name:     tableName,
		Columns:  columns,
		RowCount: count,
	}, nil
}

func (b *BaseSQLAdapter) qualified(table string) string {
	schema, name := b.Dialect.ParseQualifiedName(table)
	if b.Cfg.Schema != "" && !strings.Contains(table, ".") {
		schema = b.Cfg.Schema
	}
	return b.Dialect.QualifiedName(schema, name)
}

// RowCount returns the number of rows in table.
func (b *BaseSQLAdapter) RowCount(ctx context.Context, table string) (int64, error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}
	var n int64
	//nolint:gosec // identifiers are quoted
	if err := b.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+b.qualified(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return n, nil
}

// ScanRows streams table rows projected onto fields.
func (b *BaseSQLAdapter) ScanRows(ctx context.Context, table string, fields []string, fn func(values []any) error) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields requested from %s", table)
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.Dialect.QuoteIdent(f)
	}
	//nolint:gosec // identifiers are quoted
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), b.qualified(table))

	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
		for i, v := range values {
			// drivers may reuse byte buffers between rows
			if raw, ok := v.([]byte); ok {
				values[i] = string(raw)
			}
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", table, err)
	}
	return nil
}

// WriteTable drops and recreates table, then inserts rows in one
// transaction. Columns with a MaxLength become VARCHAR(n).
func (b *BaseSQLAdapter) WriteTable(ctx context.Context, table string, columns []core.Column, rows [][]any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if len(columns) == 0 {
		return fmt.Errorf("no columns for %s", table)
	}

	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		typ := c.Type
		if typ == "" {
			typ = "VARCHAR"
		}
		if c.MaxLength > 0 {
			typ = fmt.Sprintf("%s(%d)", typ, c.MaxLength)
		}
		names[i] = b.Dialect.QuoteIdent(c.Name)
		defs[i] = names[i] + " " + typ
		marks[i] = b.Dialect.FormatPlaceholder(i + 1)
	}
	target := b.qualified(table)

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+target); err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}
	//nolint:gosec // identifiers are quoted
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", target, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	//nolint:gosec // identifiers are quoted
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		target, strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	b.logger().Debug("wrote table", slog.String("table", table), slog.Int("rows", len(rows)))
	return nil
}
