package rules

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

type fakeLookup map[string]*core.Dataset

func (f fakeLookup) Dataset(_ context.Context, table string) (*core.Dataset, error) {
	for name, ds := range f {
		if strings.EqualFold(name, table) {
			return ds, nil
		}
	}
	return nil, nil
}

func (f fakeLookup) Tables(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(f))
	for name := range f {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

func text(name string) core.Field { return core.Field{Name: name, Type: core.FieldText, MaxLength: 25} }
func flag(name string) core.Field { return core.Field{Name: name, Type: core.FieldText, MaxLength: 1} }
func num(name string) core.Field  { return core.Field{Name: name, Type: core.FieldDecimal} }
func date(name string) core.Field { return core.Field{Name: name, Type: core.FieldDate} }

func descriptor(t *testing.T, table, schema string) *catalog.Descriptor {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	d, err := cat.Table(table, schema)
	require.NoError(t, err)
	return d
}

// newEnv wires a dataset for desc with the other tables as lookup.
func newEnv(t *testing.T, desc *catalog.Descriptor, ds *core.Dataset, others fakeLookup) *Env {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	if others == nil {
		others = fakeLookup{}
	}
	others[ds.Name] = ds
	return &Env{Table: ds, Descriptor: desc, Catalog: cat, Lookup: others}
}

// run compiles spec against desc and checks env.
func run(t *testing.T, spec catalog.RuleSpec, env *Env) []core.Finding {
	t.Helper()
	r, err := CompileRule(spec, 0, env.Descriptor)
	require.NoError(t, err)
	findings, err := r.Check(context.Background(), env)
	require.NoError(t, err)
	return findings
}

func ids(findings []core.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.ID
	}
	return out
}

func str(s string) *string { return &s }

func intp(n int) *int { return &n }
