package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

func TestKinds(t *testing.T) {
	names := make([]string, 0, Count())
	for _, k := range Kinds() {
		names = append(names, k.Name)
		assert.NotEmpty(t, k.Description, k.Name)
		assert.NotEmpty(t, k.Keys, k.Name)
	}
	assert.Equal(t, []string{
		"assert", "backwater_profile", "citation_usage", "concat", "empty_if", "expr",
		"forbid", "populated_if", "reference", "reference_value", "referenced_by", "unique",
	}, names)

	info, ok := GetKind("reference")
	require.True(t, ok)
	assert.Equal(t, ScopeTable, info.Scope)
	_, ok = GetKind("nope")
	assert.False(t, ok)
}

func TestCompile_WholeCatalog(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	for _, schema := range cat.Schemas {
		for _, name := range cat.TableNames() {
			desc, err := cat.Table(name, schema)
			require.NoError(t, err)
			compiled, err := Compile(desc)
			require.NoError(t, err, "%s@%s", name, schema)
			require.Len(t, compiled, len(desc.Rules))
			for i, r := range compiled {
				assert.Equal(t, i, r.Index())
				assert.Equal(t, desc.Rules[i].Kind, r.Kind())
			}
		}
	}
}

func TestCompileRule_Errors(t *testing.T) {
	desc := descriptor(t, "S_Levee", "2021")
	tests := []struct {
		name string
		spec catalog.RuleSpec
		kind string
	}{
		{"unknown kind", catalog.RuleSpec{Kind: "bogus"}, "bogus"},
		{"missing field", catalog.RuleSpec{Kind: "populated_if", Message: "m"}, "populated_if"},
		{"missing message", catalog.RuleSpec{Kind: "assert", Expect: &catalog.Cond{Populated: "OWNER"}}, "assert"},
		{"bad if", catalog.RuleSpec{Kind: "empty_if", Field: "OWNER", Message: "m", If: &catalog.Cond{}}, "empty_if"},
		{"bad when", catalog.RuleSpec{Kind: "concat", Field: "A", Parts: []string{"B"}, Message: "m", When: &catalog.Cond{Field: "A"}}, "concat"},
		{"expr syntax", catalog.RuleSpec{Kind: "expr", Expr: "row[", Message: "m"}, "expr"},
		{"backwater without exceed", catalog.RuleSpec{Kind: "backwater_profile", Message: "m"}, "backwater_profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRule(tt.spec, 3, desc)
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "S_Levee", ce.Table)
			assert.Equal(t, 3, ce.Index)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Contains(t, err.Error(), "S_Levee rule 3")
		})
	}
}

func TestRuleFields(t *testing.T) {
	desc := descriptor(t, "S_Levee", "2021")
	r, err := CompileRule(desc.Rules[0], 0, desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"DISTRICT", "USACE_LEV"}, r.Fields())
	assert.Equal(t, desc.Rules[0], r.Spec())
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, "warning", SeverityOf("  WARNING: check it").String())
	assert.Equal(t, "error", SeverityOf("Warning: lower case is an error").String())
}
