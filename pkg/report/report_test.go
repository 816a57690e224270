package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/t968rs/FEMA-Prod-updates/internal/testutil"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapters/sqlite"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

var leveeFindings = []core.Finding{
	core.NewFinding("L1", `LEVEE_TYP value of "XX" is not in domain`),
	{ID: "L2", Message: "SOURCE_CIT is not cited", Severity: core.SeverityWarning, Rule: "citation_usage"},
}

func writeAll(t *testing.T, s Sink) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WriteTable(ctx, "S_Levee", leveeFindings))
	require.NoError(t, s.WriteTable(ctx, "S_XS", nil))
	require.NoError(t, s.WriteTable(ctx, "S_Wtr_Ln", []core.Finding{core.NewFinding("", "Missing fields: WTR_NM")}))
	require.NoError(t, s.Close())
}

func TestTableSink(t *testing.T) {
	ws := testutil.SQLiteWorkspace(t)
	writeAll(t, NewTableSink(ws, ""))

	ctx := context.Background()
	tables, err := ws.ListTables(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S_Levee_QC", "S_Wtr_Ln_QC"}, tables)

	meta, err := ws.GetTableMetadata(ctx, "S_Levee_QC")
	require.NoError(t, err)
	var names []string
	for _, c := range meta.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Unique_ID", "Error", "Comment", "Response"}, names)
	assert.Equal(t, 25, meta.Fields()[0].MaxLength)

	var rows [][]string
	require.NoError(t, ws.ScanRows(ctx, "S_Levee_QC", []string{"Unique_ID", "Error", "Comment"}, func(v []any) error {
		rows = append(rows, []string{core.Text(v[0]), core.Text(v[1]), core.Display(v[2])})
		return nil
	}))
	assert.Equal(t, [][]string{
		{"L1", `LEVEE_TYP value of "XX" is not in domain`, "NULL"},
		{"L2", "SOURCE_CIT is not cited", "NULL"},
	}, rows)
}

type failingWriter struct{}

func (failingWriter) WriteTable(context.Context, string, []core.Column, [][]any) error {
	return errors.New("read-only workspace")
}

func TestTableSink_Error(t *testing.T) {
	err := NewTableSink(failingWriter{}, "_ERR").WriteTable(context.Background(), "S_Levee", leveeFindings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S_Levee")
	assert.Contains(t, err.Error(), "read-only workspace")
}

func TestOpenTableSink(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := OpenTableSink(ctx, dir, "", testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Empty(t, s.Files())
	writeAll(t, s)

	path := filepath.Join(dir, TableStoreFile)
	assert.Equal(t, []string{path}, s.Files())

	store := sqlite.New(testutil.NewTestLogger(t))
	require.NoError(t, store.Connect(ctx, adapter.Config{Type: "gpkg", Path: path}))
	t.Cleanup(func() { _ = store.Close() })
	tables, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S_Levee_QC", "S_Wtr_Ln_QC"}, tables)
	n, err := store.RowCount(ctx, "S_Levee_QC")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSheetSink(t *testing.T) {
	dir := t.TempDir()
	s := NewSheetSink(dir)
	writeAll(t, s)
	require.Equal(t, []string{filepath.Join(dir, SheetFile)}, s.Files())

	f, err := excelize.OpenFile(filepath.Join(dir, SheetFile))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"S_Levee", "S_Wtr_Ln"}, f.GetSheetList())
	rows, err := f.GetRows("S_Levee")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID From Table", "Error Found", "Comment", "Response"}, rows[0])
	assert.Equal(t, []string{"L1", `LEVEE_TYP value of "XX" is not in domain`}, rows[1])

	width, err := f.GetColWidth("S_Levee", "B")
	require.NoError(t, err)
	assert.InDelta(t, 150, width, 0.01)

	panes, err := f.GetPanes("S_Levee")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "A2", panes.TopLeftCell)
}

func TestSheetSink_NothingWritten(t *testing.T) {
	dir := t.TempDir()
	s := NewSheetSink(dir)
	require.NoError(t, s.WriteTable(context.Background(), "S_XS", nil))
	require.NoError(t, s.Close())
	assert.NoFileExists(t, filepath.Join(dir, SheetFile))
}

func TestCSVSink(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(dir)
	writeAll(t, s)
	assert.Len(t, s.Files(), 2)

	file, err := os.Open(filepath.Join(dir, "s_levee_errors.csv"))
	require.NoError(t, err)
	defer func() { _ = file.Close() }()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Unique_ID", "Error", "Comment", "Response"},
		{"L1", `LEVEE_TYP value of "XX" is not in domain`, "", ""},
		{"L2", "SOURCE_CIT is not cited", "", ""},
	}, records)
	assert.NoFileExists(t, filepath.Join(dir, "s_xs_errors.csv"))
}

func TestJSONSink(t *testing.T) {
	dir := t.TempDir()
	writeAll(t, NewJSONSink(dir))

	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, 3, doc.TotalFindings)
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, "S_Levee", doc.Tables[0].Table)
	assert.Equal(t, leveeFindings, doc.Tables[0].Findings)
	assert.True(t, strings.Contains(string(data), `"severity": "warning"`))
}

func TestParquetSink(t *testing.T) {
	dir := t.TempDir()
	s, err := NewParquetSink(dir)
	require.NoError(t, err)
	writeAll(t, s)

	rows, err := ReadFindings(filepath.Join(dir, ParquetFile))
	require.NoError(t, err)
	assert.Equal(t, []FindingRow{
		{Table: "S_Levee", UniqueID: "L1", Error: `LEVEE_TYP value of "XX" is not in domain`, Severity: "error"},
		{Table: "S_Levee", UniqueID: "L2", Error: "SOURCE_CIT is not cited", Severity: "warning", Rule: "citation_usage"},
		{Table: "S_Wtr_Ln", Error: "Missing fields: WTR_NM", Severity: "error"},
	}, rows)
}

func TestOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	sink, err := Open(context.Background(), []string{"table", "CSV", "json", "sheet", "parquet"},
		Options{Dir: dir, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	writeAll(t, sink)

	multi, ok := sink.(Multi)
	require.True(t, ok)
	assert.Len(t, multi, 5)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "s_levee_errors.csv"),
		filepath.Join(dir, "s_wtr_ln_errors.csv"),
		filepath.Join(dir, JSONFile),
		filepath.Join(dir, SheetFile),
		filepath.Join(dir, ParquetFile),
		filepath.Join(dir, TableStoreFile),
	}, multi.Files())
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		opts    Options
		wantErr string
	}{
		{"no formats", nil, Options{Dir: "x"}, "no report format"},
		{"unknown format", []string{"pdf"}, Options{Dir: t.TempDir()}, `unknown report format "pdf"`},
		{"no dir", []string{"csv"}, Options{}, "report directory not set"},
		{"table without dir", []string{"table"}, Options{}, "report directory not set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.formats, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "éé", truncate("ééé", 2))
}
