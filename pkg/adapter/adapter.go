// Package adapter defines the storage contract the QC engine reads
// workspaces through, plus a registry of concrete adapters.
package adapter

import (
	"context"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// Adapter defines the interface that all workspace adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the workspace.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// ListTables returns the user tables of the workspace.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableMetadata retrieves live field metadata and the row count.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// RowCount returns the number of rows in a table.
	RowCount(ctx context.Context, table string) (int64, error)

	// ScanRows projects a table onto fields and calls fn once per row with
	// values in field order. The slice is reused between calls.
	ScanRows(ctx context.Context, table string, fields []string, fn func(values []any) error) error

	// WriteTable replaces table with the given columns and rows.
	WriteTable(ctx context.Context, table string, columns []Column, rows [][]any) error

	// LoadCSV loads data from a CSV file into a table.
	LoadCSV(ctx context.Context, tableName, filePath string) error

	// DialectName returns the adapter's SQL dialect name.
	DialectName() string
}

// Type aliases for core types used by adapters.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig
	// Column is an alias for core.Column.
	Column = core.Column
	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata
	// Rows is an alias for core.Rows.
	Rows = core.Rows
)
