package qc

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t968rs/FEMA-Prod-updates/internal/testutil"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapters/duckdb"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

var (
	applicableDate = time.Date(9999, 9, 9, 0, 0, 0, 0, time.UTC)
	requiredDate   = time.Date(8888, 8, 8, 0, 0, 0, 0, time.UTC)
)

func submittal(dfirmID string) testutil.Table {
	return testutil.Table{
		Name:    "S_Submittal_Info",
		Columns: []core.Column{testutil.Text("DFIRM_ID", 6), testutil.Text("SUBINFO_ID", 25)},
		Rows:    [][]any{{dfirmID, "SI1"}, {dfirmID, "SI2"}},
	}
}

func citations() testutil.Table {
	return testutil.Table{
		Name:    "L_Source_Cit",
		Columns: []core.Column{testutil.Text("SOURCE_CIT", 11)},
		Rows:    [][]any{{"STUDY1"}, {"BASE1"}},
	}
}

func levees() testutil.Table {
	clean := []any{1, "48001C", "1.1.1.0", "L1", "FC1", "Levee A", "LC", "Creek", "Left",
		"F", "F", "A", "City", "FT", "STUDY1", nil, applicableDate, -9999.0}
	dup := slices.Clone(clean)
	dup[0] = 3
	return testutil.Table{
		Name: "S_Levee",
		Columns: []core.Column{
			testutil.Int("OBJECTID"),
			testutil.Text("DFIRM_ID", 6),
			testutil.Text("VERSION_ID", 11),
			testutil.Text("LEVEE_ID", 25),
			testutil.Text("FC_SYS_ID", 25),
			testutil.Text("LEVEE_NM", 100),
			testutil.Text("LEVEE_TYP", 3),
			testutil.Text("WTR_NM", 100),
			testutil.Text("BANK_LOC", 10),
			testutil.Text("USACE_LEV", 1),
			testutil.Text("PL84_99TF", 1),
			testutil.Text("LEVEE_STAT", 3),
			testutil.Text("OWNER", 100),
			testutil.Text("LEN_UNIT", 16),
			testutil.Text("SOURCE_CIT", 11),
			testutil.Text("DISTRICT", 4),
			testutil.Date("PAL_DATE"),
			testutil.Double("FREEBOARD"),
		},
		Rows: [][]any{
			clean,
			{2, "48999C", "1.1.1.0", "L2", "FC1", "Levee B", "XX", "Creek", "Left",
				"T", "U", "P", "City ", "FT", "BOGUS", nil, requiredDate, -8888.0},
			dup,
		},
	}
}

// fixture is a Hydraulics workspace with one table outside the task, one
// uncataloged table and one empty table.
func fixture() []testutil.Table {
	return []testutil.Table{
		submittal("48001C"),
		citations(),
		levees(),
		{
			Name:    "S_FIRM_Pan",
			Columns: []core.Column{testutil.Text("FIRM_ID", 25), testutil.Text("PANEL", 4)},
			Rows:    [][]any{{"P1", "0250"}},
		},
		{
			Name:    "S_XS",
			Columns: []core.Column{testutil.Text("XS_LN_ID", 25)},
		},
		{
			Name:    "Notes",
			Columns: []core.Column{testutil.Text("NOTE", 254)},
			Rows:    [][]any{{"call the county"}},
		},
	}
}

func duckdbWorkspace(t *testing.T, tables ...testutil.Table) adapter.Adapter {
	t.Helper()
	a := duckdb.New(testutil.NewTestLogger(t))
	require.NoError(t, a.Connect(context.Background(), adapter.Config{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })
	testutil.Build(t, a, tables...)
	return a
}

func runConfig(workers int) RunConfig {
	return RunConfig{
		Task:    "Hydraulics Data Capture",
		Schema:  "2021",
		Tables:  []string{"S_Levee", "s_firm_pan", "S_XS", "Notes", "S_Missing", "S_LEVEE"},
		Workers: workers,
	}
}

func run(t *testing.T, ws adapter.Adapter, cfg RunConfig, opts ...Option) *Result {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	opts = append(opts, WithLogger(testutil.NewTestLogger(t)))
	res, err := NewRunner(ws, cat, cfg, opts...).Run(context.Background())
	require.NoError(t, err)
	return res
}

func tableResult(t *testing.T, res *Result, name string) TableResult {
	t.Helper()
	for _, tr := range res.Tables {
		if tr.Table == name {
			return tr
		}
	}
	t.Fatalf("no result for %s", name)
	return TableResult{}
}

// leveeFindings is sorted by record id, then message.
var leveeFindings = []string{
	"L1 | Duplicate unique id found in LEVEE_ID",
	`L2 | DFIRM_ID value of "48999C" does not match the DFIRM_ID value in S_Submittal_Info`,
	`L2 | FREEBOARD value of "-8888" is not an acceptable NULL value for applicable fields`,
	"L2 | If LEVEE_STAT is Provisional, then PAL_DATE should be populated",
	"L2 | If USACE_LEV is 'T', then DISTRICT should contain District Code",
	`L2 | LEVEE_TYP value of "XX" is not in domain`,
	"L2 | OWNER has an extra space.",
	"L2 | PAL_DATE value of 8/8/8888 is not an acceptable NULL value for applicable fields",
	`L2 | SOURCE_CIT value of "BOGUS" does not match any values in L_Source_Cit`,
}

// withoutDFIRMID drops the DFIRM_ID mismatch from leveeFindings.
func withoutDFIRMID() []string {
	return slices.DeleteFunc(slices.Clone(leveeFindings), func(s string) bool {
		return strings.Contains(s, "DFIRM_ID value of")
	})
}

func TestRunner_Run(t *testing.T) {
	workspaces := map[string]func(*testing.T, ...testutil.Table) adapter.Adapter{
		"sqlite": func(t *testing.T, tables ...testutil.Table) adapter.Adapter {
			return testutil.SQLiteWorkspace(t, tables...)
		},
		"duckdb": duckdbWorkspace,
	}
	for name, open := range workspaces {
		t.Run(name, func(t *testing.T) {
			res := run(t, open(t, fixture()...), runConfig(1))

			var names []string
			for _, tr := range res.Tables {
				names = append(names, tr.Table)
			}
			assert.Equal(t, []string{"Notes", "S_FIRM_Pan", "S_Levee", "S_XS"}, names)
			assert.False(t, res.Production)

			levee := tableResult(t, res, "S_Levee")
			assert.Equal(t, StatusValidated, levee.Status)
			assert.Equal(t, 3, levee.Rows)
			assert.Empty(t, levee.Advisories)
			assert.Equal(t, leveeFindings, lines(levee.Findings))

			pan := tableResult(t, res, "S_FIRM_Pan")
			assert.Equal(t, StatusValidated, pan.Status)
			assert.Equal(t, []string{
				" | Missing fields: DFIRM_ID, VERSION_ID, ST_FIPS, PCOMM, SUFFIX, FIRM_PAN, PANEL_TYP, SCALE, BASE_TYP, SOURCE_CIT, PNP_REASON",
			}, lines(pan.Findings))
			require.Len(t, pan.Advisories, 1)
			assert.Equal(t, "S_FIRM_Pan contains data but is not applicable for the chosen MIP task.", pan.Advisories[0].Message)

			xs := tableResult(t, res, "S_XS")
			assert.Equal(t, StatusEmpty, xs.Status)
			assert.Empty(t, xs.Findings)

			notes := tableResult(t, res, "Notes")
			assert.Equal(t, StatusUncataloged, notes.Status)
			assert.Empty(t, notes.Findings)
			assert.Len(t, notes.Advisories, 2)

			assert.Equal(t, len(leveeFindings)+1, res.TotalFindings)
			counts := res.Counts()
			assert.Equal(t, len(leveeFindings)+1, counts[core.SeverityError])
		})
	}
}

func TestRunner_WorkersDoNotChangeResults(t *testing.T) {
	ws := testutil.SQLiteWorkspace(t, fixture()...)
	serial := run(t, ws, runConfig(1))
	parallel := run(t, ws, runConfig(4))

	require.Len(t, parallel.Tables, len(serial.Tables))
	for i := range serial.Tables {
		assert.Equal(t, serial.Tables[i].Table, parallel.Tables[i].Table)
		assert.Equal(t, serial.Tables[i].Status, parallel.Tables[i].Status)
		assert.Equal(t, serial.Tables[i].Findings, parallel.Tables[i].Findings)
		assert.Equal(t, serial.Tables[i].Advisories, parallel.Tables[i].Advisories)
	}
	assert.Equal(t, serial.TotalFindings, parallel.TotalFindings)
}

func TestRunner_TaskTables(t *testing.T) {
	ws := testutil.SQLiteWorkspace(t, fixture()...)
	res := run(t, ws, RunConfig{Task: "Hydraulics Data Capture", Schema: "2021"})

	var names []string
	for _, tr := range res.Tables {
		names = append(names, tr.Table)
	}
	assert.Equal(t, []string{"L_Source_Cit", "S_Levee", "S_Submittal_Info", "S_XS"}, names)
}

func TestRunner_SubmittalInfo(t *testing.T) {
	t.Run("absent skips the DFIRM_ID check", func(t *testing.T) {
		ws := testutil.SQLiteWorkspace(t, citations(), levees())
		res := run(t, ws, RunConfig{Task: "Hydraulics Data Capture", Schema: "2021", Tables: []string{"S_Levee"}})
		got := lines(tableResult(t, res, "S_Levee").Findings)
		assert.Equal(t, withoutDFIRMID(), got)
	})

	t.Run("every submittal DFIRM_ID is accepted", func(t *testing.T) {
		ws := testutil.SQLiteWorkspace(t, citations(), levees(), testutil.Table{
			Name:    "S_Submittal_Info",
			Columns: []core.Column{testutil.Text("DFIRM_ID", 6), testutil.Text("SUBINFO_ID", 25)},
			Rows:    [][]any{{"48002C", "SI1"}, {"48001C", "SI2"}},
		})
		res := run(t, ws, RunConfig{Task: "Hydraulics Data Capture", Schema: "2021", Tables: []string{"S_Levee"}})
		got := lines(tableResult(t, res, "S_Levee").Findings)
		assert.Equal(t, leveeFindings, got)
		assert.NotContains(t, got, `L1 | DFIRM_ID value of "48001C" does not match the DFIRM_ID value in S_Submittal_Info`)
	})

	t.Run("without DFIRM_ID fails the run", func(t *testing.T) {
		ws := testutil.SQLiteWorkspace(t, citations(), levees(), testutil.Table{
			Name:    "S_Submittal_Info",
			Columns: []core.Column{testutil.Text("SUBINFO_ID", 25)},
			Rows:    [][]any{{"SI1"}},
		})
		cat, err := catalog.Default()
		require.NoError(t, err)
		_, err = NewRunner(ws, cat, RunConfig{Task: "Hydraulics Data Capture", Schema: "2021"}).Run(context.Background())
		require.ErrorIs(t, err, ErrNoCanonicalID)
	})
}

func TestRunner_InvalidConfig(t *testing.T) {
	ws := testutil.SQLiteWorkspace(t, citations())
	cat, err := catalog.Default()
	require.NoError(t, err)

	_, err = NewRunner(ws, cat, RunConfig{Task: "Nope", Schema: "2021"}).Run(context.Background())
	require.ErrorIs(t, err, ErrUnknownTask)
}

type recorder struct {
	mu       sync.Mutex
	started  []string
	finished []string
}

func (r *recorder) TableStarted(table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, table)
}

func (r *recorder) TableFinished(res TableResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res.Table)
}

func TestRunner_Observer(t *testing.T) {
	ws := testutil.SQLiteWorkspace(t, fixture()...)
	rec := &recorder{}
	run(t, ws, runConfig(3), WithObserver(rec))

	want := []string{"Notes", "S_FIRM_Pan", "S_Levee", "S_XS"}
	assert.ElementsMatch(t, want, rec.started)
	assert.ElementsMatch(t, want, rec.finished)
}

func TestRunner_Observers(t *testing.T) {
	ws := testutil.SQLiteWorkspace(t, fixture()...)
	a, b := &recorder{}, &recorder{}
	run(t, ws, runConfig(2), WithObserver(Observers{a, b}))

	assert.Len(t, a.finished, 4)
	assert.ElementsMatch(t, a.finished, b.finished)
}
