package rules

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

func init() {
	Register(KindInfo{
		Name: "unique", Scope: ScopeTable,
		Description: "one finding per distinct duplicated value of field",
		Keys:        []string{"field", "message"},
	}, compileUnique)
	Register(KindInfo{
		Name: "reference", Scope: ScopeTable,
		Description: "every distinct field value (rows passing where) must exist in table.foreign_field",
		Keys:        []string{"field", "table", "foreign_field", "where", "message"},
	}, compileReference)
	Register(KindInfo{
		Name: "referenced_by", Scope: ScopeTable,
		Description: "every distinct field value must occur in at least one of sources",
		Keys:        []string{"field", "sources", "message"},
	}, compileReferencedBy)
	Register(KindInfo{
		Name: "citation_usage", Scope: ScopeTable,
		Description: "every citation must be used by the SOURCE_CIT column of another table",
		Keys:        []string{"field", "skip_prefix", "message"},
	}, compileCitationUsage)
	Register(KindInfo{
		Name: "backwater_profile", Scope: ScopeTable,
		Description: "backwater elevations must match and not exceed the cross-section elevations of the same water and event",
		Keys:        []string{"message", "exceed_message"},
	}, compileBackwater)
}

// Duplicates returns each value that occurs more than once, in order of
// its second occurrence. Repeated NULLs are one duplicate, reported as
// "NULL".
func Duplicates(values []any) []string {
	seen := make(map[string]int, len(values))
	nulls := 0
	var out []string
	for _, v := range values {
		if v == nil {
			if nulls++; nulls == 2 {
				out = append(out, core.Display(nil))
			}
			continue
		}
		s := core.Text(v)
		seen[s]++
		if seen[s] == 2 {
			out = append(out, s)
		}
	}
	return out
}

type uniqueRule struct {
	*base
}

func compileUnique(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "field"); err != nil {
		return nil, err
	}
	if spec.Message == "" {
		spec.Message = "Duplicate values found in " + spec.Field
	}
	b, err := newBase(spec, index, desc, spec.Field)
	if err != nil {
		return nil, err
	}
	return &uniqueRule{base: b}, nil
}

func (r *uniqueRule) Check(_ context.Context, env *Env) ([]core.Finding, error) {
	var out []core.Finding
	for _, v := range Duplicates(env.Table.Column(r.spec.Field)) {
		out = append(out, r.finding(v, r.spec.Message, nil))
	}
	return out, nil
}

// distinctValues returns the sorted distinct trimmed non-blank values of
// field over rows accepted by keep.
func distinctValues(ds *core.Dataset, field string, keep predicate) []string {
	set := make(map[string]bool)
	for i := range ds.Rows {
		row := Row{ds: ds, i: i}
		if keep != nil && !keep(row) {
			continue
		}
		v := row.Get(field)
		if core.IsBlank(v) {
			continue
		}
		set[strings.TrimSpace(core.Text(v))] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func valueSet(ds *core.Dataset, field string) map[string]bool {
	set := make(map[string]bool)
	for _, v := range ds.Column(field) {
		if v != nil {
			set[strings.TrimSpace(core.Text(v))] = true
		}
	}
	return set
}

type referenceRule struct {
	*base
	where        predicate
	foreignField string
}

func compileReference(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "field", "table"); err != nil {
		return nil, err
	}
	ff := cmp.Or(spec.ForeignField, spec.Field)
	if spec.Message == "" {
		spec.Message = fmt.Sprintf("Matching ID value not found in the %s field in %s", ff, spec.Table)
	}
	b, err := newBase(spec, index, desc, spec.Field)
	if err != nil {
		return nil, err
	}
	where, fields, err := compileCond(spec.Where, desc)
	if err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	b.need(fields...)
	return &referenceRule{base: b, where: where, foreignField: ff}, nil
}

func (r *referenceRule) Check(ctx context.Context, env *Env) ([]core.Finding, error) {
	primary := distinctValues(env.Table, r.spec.Field, r.where)
	if len(primary) == 0 {
		return nil, nil
	}
	foreign, err := env.Lookup.Dataset(ctx, r.spec.Table)
	if err != nil {
		return nil, err
	}

	var out []core.Finding
	if foreign == nil {
		msg := r.spec.Table + " table could not be found"
		for _, v := range primary {
			out = append(out, r.finding(v, msg, nil))
		}
		return out, nil
	}
	set := valueSet(foreign, r.foreignField)
	for _, v := range primary {
		if !set[v] {
			out = append(out, r.finding(v, r.spec.Message, nil))
		}
	}
	return out, nil
}

type referencedByRule struct {
	*base
}

func compileReferencedBy(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "field", "sources", "message"); err != nil {
		return nil, err
	}
	b, err := newBase(spec, index, desc, spec.Field)
	if err != nil {
		return nil, err
	}
	return &referencedByRule{base: b}, nil
}

func (r *referencedByRule) Check(ctx context.Context, env *Env) ([]core.Finding, error) {
	used := make(map[string]bool)
	for _, src := range r.spec.Sources {
		ds, err := env.Lookup.Dataset(ctx, src.Table)
		if err != nil {
			return nil, err
		}
		for v := range valueSet(ds, src.Field) {
			used[v] = true
		}
	}
	var out []core.Finding
	for _, v := range distinctValues(env.Table, r.spec.Field, nil) {
		if !used[v] {
			out = append(out, r.finding(v, r.spec.Message, nil))
		}
	}
	return out, nil
}

type citationRule struct {
	*base
}

func compileCitationUsage(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if spec.Field == "" {
		spec.Field = "SOURCE_CIT"
	}
	if err := requireKeys(spec, "message"); err != nil {
		return nil, err
	}
	b, err := newBase(spec, index, desc, spec.Field)
	if err != nil {
		return nil, err
	}
	return &citationRule{base: b}, nil
}

func (r *citationRule) Check(ctx context.Context, env *Env) ([]core.Finding, error) {
	tables, err := env.Lookup.Tables(ctx)
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool)
	for _, t := range tables {
		if strings.EqualFold(t, env.Table.Name) {
			continue
		}
		ds, err := env.Lookup.Dataset(ctx, t)
		if err != nil {
			return nil, err
		}
		if !ds.Has(r.spec.Field) {
			continue
		}
		for v := range valueSet(ds, r.spec.Field) {
			used[v] = true
		}
	}

	var out []core.Finding
	for _, v := range distinctValues(env.Table, r.spec.Field, nil) {
		if used[v] || (r.spec.SkipPrefix != "" && strings.HasPrefix(v, r.spec.SkipPrefix)) {
			continue
		}
		out = append(out, r.finding(v, r.spec.Message, nil))
	}
	return out, nil
}

// Backwater profile tables and fields.
const (
	xsTable     = "S_XS"
	xsElevTable = "L_XS_Elev"
)

type backwaterRule struct {
	*base
}

func compileBackwater(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "message"); err != nil {
		return nil, err
	}
	if spec.ExceedMessage == "" {
		return nil, fmt.Errorf("missing exceed_message")
	}
	b, err := newBase(spec, index, desc, "WTR_NM", "EVENT_TYP", "BKWTR_WSEL")
	if err != nil {
		return nil, err
	}
	return &backwaterRule{base: b}, nil
}

type profileKey struct {
	water, event string
}

func (r *backwaterRule) Check(ctx context.Context, env *Env) ([]core.Finding, error) {
	xs, err := env.Lookup.Dataset(ctx, xsTable)
	if err != nil {
		return nil, err
	}
	elev, err := env.Lookup.Dataset(ctx, xsElevTable)
	if err != nil {
		return nil, err
	}
	if xs == nil || elev == nil {
		env.logger().Debug("cross-section tables absent, rule skipped", "table", env.Table.Name, "rule", r.index)
		return nil, nil
	}

	waterByXS := make(map[string]string)
	for i := range xs.Rows {
		waterByXS[core.Text(xs.Value(i, "XS_LN_ID"))] = core.Text(xs.Value(i, "WTR_NM"))
	}
	// joined elevations per (water, event), rounded to tenths
	joined := make(map[profileKey][]float64)
	for i := range elev.Rows {
		water, ok := waterByXS[core.Text(elev.Value(i, "XS_LN_ID"))]
		if !ok {
			continue
		}
		wsel, ok := core.Number(elev.Value(i, "WSEL"))
		if !ok {
			continue
		}
		k := profileKey{water, core.Text(elev.Value(i, "EVENT_TYP"))}
		joined[k] = append(joined[k], tenths(wsel))
	}

	var missing, exceed []core.Finding
	for i := range env.Table.Rows {
		row := Row{ds: env.Table, i: i}
		id := row.ID(env.Descriptor.ID)
		k := profileKey{core.Text(row.Get("WTR_NM")), core.Text(row.Get("EVENT_TYP"))}
		wsel, ok := core.Number(row.Get("BKWTR_WSEL"))
		if !ok {
			missing = append(missing, r.finding(id, r.spec.Message, &row))
			continue
		}
		wsel = tenths(wsel)
		if !slices.Contains(joined[k], wsel) {
			missing = append(missing, r.finding(id, r.spec.Message, &row))
		}
		if slices.ContainsFunc(joined[k], func(x float64) bool { return wsel > x }) {
			exceed = append(exceed, r.finding(id, r.spec.ExceedMessage, &row))
		}
	}
	return append(missing, exceed...), nil
}

func tenths(x float64) float64 {
	return math.Round(x*10) / 10
}
