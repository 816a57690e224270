package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// JSONFile is the document written by the JSON sink.
const JSONFile = "qc_report.json"

// Document is the JSON report.
type Document struct {
	Tables        []TableReport `json:"tables"`
	TotalFindings int           `json:"total_findings"`
}

// TableReport holds the findings of one table.
type TableReport struct {
	Table    string         `json:"table"`
	Findings []core.Finding `json:"findings"`
}

// JSONSink collects every table and writes one document on Close.
type JSONSink struct {
	dir   string
	doc   Document
	files []string
}

// NewJSONSink creates a JSON sink writing into dir.
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{dir: dir, doc: Document{Tables: []TableReport{}}}
}

// WriteTable implements Sink.
func (s *JSONSink) WriteTable(_ context.Context, table string, findings []core.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	s.doc.Tables = append(s.doc.Tables, TableReport{Table: table, Findings: slices.Clone(findings)})
	s.doc.TotalFindings += len(findings)
	return nil
}

// Close writes the document.
func (s *JSONSink) Close() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, JSONFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.files = append(s.files, path)
	return nil
}

// Files returns the written document path.
func (s *JSONSink) Files() []string { return s.files }
