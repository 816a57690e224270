package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapters/sqlite"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// Table is a fixture table built from Go literals.
type Table struct {
	Name    string
	Columns []core.Column
	Rows    [][]any
}

// Text declares a VARCHAR(n) column.
func Text(name string, n int) core.Column {
	return core.Column{Name: name, Type: "VARCHAR", MaxLength: n}
}

// Double declares a DOUBLE column.
func Double(name string) core.Column {
	return core.Column{Name: name, Type: "DOUBLE"}
}

// Int declares an INTEGER column.
func Int(name string) core.Column {
	return core.Column{Name: name, Type: "INTEGER"}
}

// Date declares a DATE column.
func Date(name string) core.Column {
	return core.Column{Name: name, Type: "DATE"}
}

// Build writes every table through a, replacing existing ones.
func Build(t testing.TB, a adapter.Adapter, tables ...Table) {
	t.Helper()
	ctx := context.Background()
	for _, tbl := range tables {
		if err := a.WriteTable(ctx, tbl.Name, tbl.Columns, tbl.Rows); err != nil {
			t.Fatalf("fixture %s: %v", tbl.Name, err)
		}
	}
}

// SQLiteWorkspace opens a fresh SQLite workspace file under t.TempDir and
// builds tables into it. The adapter is closed when the test ends.
func SQLiteWorkspace(t testing.TB, tables ...Table) adapter.Adapter {
	t.Helper()
	a := sqlite.New(NewTestLogger(t))
	path := filepath.Join(t.TempDir(), "workspace.gpkg")
	if err := a.Connect(context.Background(), adapter.Config{Type: "sqlite", Path: path}); err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	Build(t, a, tables...)
	return a
}
