package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// SheetFile is the workbook written by the sheet sink.
const SheetFile = "Errors.xlsx"

var (
	sheetHeader = []any{"ID From Table", "Error Found", "Comment", "Response"}
	sheetWidths = map[string]float64{"A": 25, "B": 150, "C": 50, "D": 50}
)

// SheetSink collects one worksheet per table and saves the workbook on Close.
type SheetSink struct {
	dir    string
	file   *excelize.File
	header int
	sheets int
	saved  []string
}

// NewSheetSink creates a sheet sink writing into dir.
func NewSheetSink(dir string) *SheetSink {
	return &SheetSink{dir: dir, header: -1}
}

func (s *SheetSink) open() error {
	if s.file != nil {
		return nil
	}
	s.file = excelize.NewFile()
	style, err := s.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDDDDD"}},
		Border:    []excelize.Border{{Type: "bottom", Color: "00000F", Style: 5}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	s.header = style
	return nil
}

// WriteTable implements Sink.
func (s *SheetSink) WriteTable(_ context.Context, table string, findings []core.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	if err := s.open(); err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	f := s.file
	if _, err := f.NewSheet(table); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", table, err)
	}
	s.sheets++

	if err := f.SetSheetRow(table, "A1", &sheetHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(table, "A1", "D1", s.header); err != nil {
		return err
	}
	for col, w := range sheetWidths {
		if err := f.SetColWidth(table, col, col, w); err != nil {
			return err
		}
	}
	if err := f.SetPanes(table, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	for i, finding := range findings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(table, cell, &[]any{finding.ID, finding.Message}); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", table, i+1, err)
		}
	}
	return nil
}

// Close saves the workbook when any sheet was written.
func (s *SheetSink) Close() error {
	if s.file == nil {
		return nil
	}
	defer func() { _ = s.file.Close() }()
	if s.sheets == 0 {
		return nil
	}
	if err := s.file.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	path := filepath.Join(s.dir, SheetFile)
	if err := s.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	s.saved = append(s.saved, path)
	return nil
}

// Files returns the saved workbook path.
func (s *SheetSink) Files() []string { return s.saved }
