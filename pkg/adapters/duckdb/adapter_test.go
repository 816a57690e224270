package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		params    map[string]any
		verify    func(t *testing.T, path string)
		wantErr   bool
	}{
		{
			name:      "in-memory",
			setupPath: func(_ *testing.T) string { return ":memory:" },
		},
		{
			name:      "empty path is in-memory",
			setupPath: func(_ *testing.T) string { return "" },
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "workspace.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
		{
			name:      "settings applied",
			setupPath: func(_ *testing.T) string { return ":memory:" },
			params:    map[string]any{"settings": map[string]any{"threads": "1"}},
		},
		{
			name:      "bad setting fails",
			setupPath: func(_ *testing.T) string { return ":memory:" },
			params:    map[string]any{"settings": map[string]any{"no_such_setting": "1"}},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			err := adp.Connect(ctx, core.AdapterConfig{Path: dbPath, Params: tt.params})
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, adp.IsConnected())
				return
			}
			require.NoError(t, err)
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorIs(t, adp.Exec(ctx, "SELECT 1"), adapter.ErrNotConnected)
	_, err := adp.ListTables(ctx)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	assert.ErrorIs(t, adp.LoadCSV(ctx, "S_Levee", "levee.csv"), adapter.ErrNotConnected)
	assert.NoError(t, adp.Close())
}

func TestAdapter_Metadata(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	require.NoError(t, adp.Exec(ctx, `
		CREATE TABLE "S_Levee" (
			"LEVEE_ID" VARCHAR,
			"FREEBOARD" DOUBLE,
			"PAL_DATE" DATE
		)
	`))
	require.NoError(t, adp.Exec(ctx, `
		INSERT INTO "S_Levee" VALUES
			('L1', 3.0, '2020-01-02'),
			('L2', -9999, NULL)
	`))

	tables, err := adp.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"S_Levee"}, tables)

	meta, err := adp.GetTableMetadata(ctx, "S_Levee")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.Schema)
	assert.Equal(t, int64(2), meta.RowCount)
	require.Len(t, meta.Columns, 3)

	fields := meta.Fields()
	assert.Equal(t, core.FieldText, fields[0].Type)
	assert.Equal(t, core.FieldDecimal, fields[1].Type)
	assert.Equal(t, core.FieldDate, fields[2].Type)

	_, err = adp.GetTableMetadata(ctx, "S_Missing")
	assert.Error(t, err)
}

func TestAdapter_ScanRows(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE "S_Levee" ("LEVEE_ID" VARCHAR, "USACE_LEV" VARCHAR)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO "S_Levee" VALUES ('L1', 'T'), ('L2', NULL)`))

	var got [][]any
	err := adp.ScanRows(ctx, "S_Levee", []string{"USACE_LEV", "LEVEE_ID"}, func(v []any) error {
		got = append(got, append([]any(nil), v...))
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]any{{"T", "L1"}, {nil, "L2"}}, got)
}

func TestAdapter_WriteTable(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	cols := []core.Column{
		{Name: "Unique_ID", Type: "VARCHAR", MaxLength: 25},
		{Name: "Error", Type: "VARCHAR", MaxLength: 254},
	}
	require.NoError(t, adp.WriteTable(ctx, "S_Levee_QC", cols, [][]any{{"L1", "x"}, {"L2", "y"}}))
	// rewriting replaces the previous report
	require.NoError(t, adp.WriteTable(ctx, "S_Levee_QC", cols, [][]any{{"L3", "z"}}))

	n, err := adp.RowCount(ctx, "S_Levee_QC")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAdapter_LoadCSV(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	csvPath := filepath.Join(t.TempDir(), "s_levee.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("LEVEE_ID,FREEBOARD\nL1,2.5\nL2,-9999\n"), 0o600))

	t.Run("creates table", func(t *testing.T) {
		require.NoError(t, adp.LoadCSV(ctx, "S_Levee", csvPath))
		n, err := adp.RowCount(ctx, "S_Levee")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("appends by name", func(t *testing.T) {
		require.NoError(t, adp.LoadCSV(ctx, "S_Levee", csvPath))
		n, err := adp.RowCount(ctx, "S_Levee")
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("duckdb")
	require.True(t, ok)
	adp := factory(nil)
	assert.Equal(t, "duckdb", adp.DialectName())
}
