package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"

	// The error table store is a GeoPackage.
	_ "github.com/t968rs/FEMA-Prod-updates/pkg/adapters/sqlite"
)

// DefaultTableSuffix names the flat error table of a table.
const DefaultTableSuffix = "_QC"

// TableStoreFile is the GeoPackage under the report directory that holds
// the flat error tables. The checked workspace is never written.
const TableStoreFile = "qc_errors.gpkg"

// TableWriter is the part of the storage adapter the table sink needs.
type TableWriter interface {
	WriteTable(ctx context.Context, table string, columns []core.Column, rows [][]any) error
}

// TableSink writes a flat error table per table, replacing any previous
// one.
type TableSink struct {
	ws     TableWriter
	suffix string

	store   adapter.Adapter
	path    string
	written bool
}

// NewTableSink creates a table sink over ws. An empty suffix means
// DefaultTableSuffix.
func NewTableSink(ws TableWriter, suffix string) *TableSink {
	if suffix == "" {
		suffix = DefaultTableSuffix
	}
	return &TableSink{ws: ws, suffix: suffix}
}

// OpenTableSink opens dir/qc_errors.gpkg through the adapter registry,
// creating it when missing, and returns a sink writing into it. Close
// releases the store.
func OpenTableSink(ctx context.Context, dir, suffix string, logger *slog.Logger) (*TableSink, error) {
	path := filepath.Join(dir, TableStoreFile)
	store, err := adapter.Open(ctx, adapter.Config{Type: "gpkg", Path: path}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open error table store %s: %w", path, err)
	}
	s := NewTableSink(store, suffix)
	s.store, s.path = store, path
	return s, nil
}

var tableColumns = []core.Column{
	{Name: ColumnID, Type: "VARCHAR", MaxLength: idLength},
	{Name: ColumnError, Type: "VARCHAR", MaxLength: textLength},
	{Name: ColumnComment, Type: "VARCHAR", MaxLength: textLength},
	{Name: ColumnResponse, Type: "VARCHAR", MaxLength: textLength},
}

// WriteTable implements Sink.
func (s *TableSink) WriteTable(ctx context.Context, table string, findings []core.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	rows := make([][]any, len(findings))
	for i, f := range findings {
		rows[i] = []any{truncate(f.ID, idLength), truncate(f.Message, textLength), nil, nil}
	}
	if err := s.ws.WriteTable(ctx, table+s.suffix, tableColumns, rows); err != nil {
		return fmt.Errorf("failed to write error table for %s: %w", table, err)
	}
	s.written = true
	return nil
}

// Close implements Sink.
func (s *TableSink) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Files returns the error table store once something was written to it.
func (s *TableSink) Files() []string {
	if s.path == "" || !s.written {
		return nil
	}
	return []string{s.path}
}
