package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// ParquetFile is the file written by the parquet sink.
const ParquetFile = "qc_findings.parquet"

// FindingRow is one row of the parquet report.
type FindingRow struct {
	Table    string `parquet:"table"`
	UniqueID string `parquet:"unique_id"`
	Error    string `parquet:"error"`
	Severity string `parquet:"severity"`
	Rule     string `parquet:"rule,optional"`
}

// ParquetSink streams every finding into one parquet file.
type ParquetSink struct {
	path   string
	file   *os.File
	writer *parquet.GenericWriter[FindingRow]
	rows   int
}

// NewParquetSink creates dir/qc_findings.parquet.
func NewParquetSink(dir string) (*ParquetSink, error) {
	path := filepath.Join(dir, ParquetFile)
	file, err := os.Create(path) //nolint:gosec // path is built from the report dir
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return &ParquetSink{
		path:   path,
		file:   file,
		writer: parquet.NewGenericWriter[FindingRow](file, parquet.Compression(&parquet.Snappy)),
	}, nil
}

// WriteTable implements Sink.
func (s *ParquetSink) WriteTable(_ context.Context, table string, findings []core.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	rows := make([]FindingRow, len(findings))
	for i, f := range findings {
		rows[i] = FindingRow{Table: table, UniqueID: f.ID, Error: f.Message, Severity: f.Severity.String(), Rule: f.Rule}
	}
	if _, err := s.writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write %s findings: %w", table, err)
	}
	s.rows += len(rows)
	return nil
}

// Close flushes the footer and closes the file.
func (s *ParquetSink) Close() error {
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}

// Files returns the parquet path.
func (s *ParquetSink) Files() []string { return []string{s.path} }

// ReadFindings reads a parquet report back.
func ReadFindings(path string) ([]FindingRow, error) {
	return parquet.ReadFile[FindingRow](path)
}
