package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// CSVSink writes <table>_errors.csv per table.
type CSVSink struct {
	dir   string
	files []string
}

// NewCSVSink creates a CSV sink writing into dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// WriteTable implements Sink.
func (s *CSVSink) WriteTable(_ context.Context, table string, findings []core.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	path := filepath.Join(s.dir, strings.ToLower(table)+"_errors.csv")
	file, err := os.Create(path) //nolint:gosec // path is built from the report dir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if err := w.Write([]string{ColumnID, ColumnError, ColumnComment, ColumnResponse}); err != nil {
		return err
	}
	for _, f := range findings {
		if err := w.Write([]string{f.ID, f.Message, "", ""}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	s.files = append(s.files, path)
	return nil
}

// Close implements Sink.
func (s *CSVSink) Close() error { return nil }

// Files returns the written CSV paths.
func (s *CSVSink) Files() []string { return s.files }
