// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	qctest "github.com/t968rs/FEMA-Prod-updates/internal/testutil"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapters/sqlite"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// ProjectTask is the task the test project is configured for.
const ProjectTask = "Hydraulics Data Capture"

// WorkspaceFile is the name of the test project's workspace.
const WorkspaceFile = "study.gpkg"

// LeveeTables returns a small Hydraulics delivery. S_Levee row L2 breaks
// the domain, NULL and hygiene conventions; everything else is clean.
func LeveeTables() []qctest.Table {
	return []qctest.Table{
		{
			Name:    "S_Submittal_Info",
			Columns: []core.Column{qctest.Text("DFIRM_ID", 6), qctest.Text("SUBINFO_ID", 25)},
			Rows:    [][]any{{"48001C", "SI1"}},
		},
		{
			Name:    "L_Source_Cit",
			Columns: []core.Column{qctest.Text("SOURCE_CIT", 11)},
			Rows:    [][]any{{"STUDY1"}},
		},
		{
			Name: "S_Levee",
			Columns: []core.Column{
				qctest.Text("DFIRM_ID", 6),
				qctest.Text("VERSION_ID", 11),
				qctest.Text("LEVEE_ID", 25),
				qctest.Text("FC_SYS_ID", 25),
				qctest.Text("LEVEE_NM", 100),
				qctest.Text("LEVEE_TYP", 3),
				qctest.Text("WTR_NM", 100),
				qctest.Text("BANK_LOC", 10),
				qctest.Text("USACE_LEV", 1),
				qctest.Text("PL84_99TF", 1),
				qctest.Text("LEVEE_STAT", 3),
				qctest.Text("OWNER", 100),
				qctest.Text("LEN_UNIT", 16),
				qctest.Text("SOURCE_CIT", 11),
				qctest.Text("DISTRICT", 4),
				qctest.Date("PAL_DATE"),
				qctest.Double("FREEBOARD"),
			},
			Rows: [][]any{
				{"48001C", "1.1.1.0", "L1", "FC1", "Levee A", "LC", "Creek", "Left",
					"F", "F", "A", "City", "FT", "STUDY1", nil, time.Date(9999, 9, 9, 0, 0, 0, 0, time.UTC), -9999.0},
				{"48001C", "1.1.1.0", "L2", "FC1", "Levee B", "XX", "Creek", "Left",
					"F", "F", "A", "City ", "FT", "STUDY1", nil, time.Date(9999, 9, 9, 0, 0, 0, 0, time.UTC), -9999.0},
			},
		},
	}
}

// SetupTestProject creates a temporary project with a dfirmqc.yaml and a
// SQLite workspace holding LeveeTables. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("failed to resolve temp dir: %v", err)
	}

	ws := sqlite.New(qctest.NewTestLogger(t))
	path := filepath.Join(dir, WorkspaceFile)
	if err := ws.Connect(context.Background(), adapter.Config{Type: "sqlite", Path: path}); err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	qctest.Build(t, ws, LeveeTables()...)
	if err := ws.Close(); err != nil {
		t.Fatalf("failed to close workspace: %v", err)
	}

	cfg := `workspace: ` + WorkspaceFile + `
task: ` + ProjectTask + `
schema_year: "2021"
output:
  dir: reports
  formats: [csv, json]
`
	if err := os.WriteFile(filepath.Join(dir, "dfirmqc.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to create dfirmqc.yaml: %v", err)
	}

	return dir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
