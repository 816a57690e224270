package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/starlark"

	qcstar "github.com/t968rs/FEMA-Prod-updates/internal/starlark"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

func init() {
	Register(KindInfo{
		Name: "expr", Scope: ScopeRow,
		Description: "Starlark expression; a truthy result is a violation. " +
			"Predeclared: row, coded, populated, table_max, table_count, row_count, tenths",
		Keys: []string{"expr", "when", "message"},
	}, compileExpr)
}

// exprFieldPattern finds the row fields an expression reads.
var exprFieldPattern = regexp.MustCompile(`(?:row\[|coded\(|populated\()\s*"([A-Za-z_][A-Za-z0-9_]*)"`)

type exprRule struct {
	*base
}

func compileExpr(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "expr", "message"); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s#%d", desc.Name, index)
	if err := qcstar.Parse(name, spec.Expr); err != nil {
		return nil, err
	}
	var fields []string
	for _, m := range exprFieldPattern.FindAllStringSubmatch(spec.Expr, -1) {
		fields = append(fields, m[1])
	}
	b, err := newBase(spec, index, desc, fields...)
	if err != nil {
		return nil, err
	}
	return &exprRule{base: b}, nil
}

func (r *exprRule) Check(ctx context.Context, env *Env) ([]core.Finding, error) {
	name := fmt.Sprintf("%s#%d", env.Table.Name, r.index)
	cur := &Row{ds: env.Table}
	globals := exprGlobals(ctx, env, cur)

	var out []core.Finding
	for i := range env.Table.Rows {
		*cur = Row{ds: env.Table, i: i}
		if r.when != nil && !r.when(*cur) {
			continue
		}
		dict, err := rowDict(*cur)
		if err != nil {
			return nil, err
		}
		globals["row"] = dict

		id := cur.ID(env.Descriptor.ID)
		v, err := qcstar.Eval(env.pool(), name, r.spec.Expr, globals)
		if err != nil {
			env.logger().Warn("rule expression failed", "table", env.Table.Name, "rule", r.index, "id", id, "error", err)
			out = append(out, core.Finding{
				ID:       id,
				Message:  fmt.Sprintf("Rule could not be evaluated (%s): %v", r.spec.Message, err),
				Severity: core.SeverityWarning,
				Rule:     r.spec.Kind,
			})
			continue
		}
		if v.Truth() {
			out = append(out, r.finding(id, r.spec.Message, cur))
		}
	}
	return out, nil
}

func rowDict(row Row) (*starlark.Dict, error) {
	dict := starlark.NewDict(len(row.ds.Fields))
	for i, f := range row.ds.Fields {
		v, err := qcstar.GoToStarlark(row.ds.Rows[row.i][i])
		if err != nil {
			v = starlark.String(core.Text(row.ds.Rows[row.i][i]))
		}
		if err := dict.SetKey(starlark.String(f.Name), v); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

// exprGlobals builds the predeclared names. Row-bound helpers read *cur,
// which the caller advances between evaluations.
func exprGlobals(ctx context.Context, env *Env, cur *Row) starlark.StringDict {
	dataset := func(table string) (*core.Dataset, error) {
		return env.Lookup.Dataset(ctx, table)
	}

	return starlark.StringDict{
		"tenths": qcstar.Tenths,

		"coded": starlark.NewBuiltin("coded", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			field, codes, err := stringArgs(b.Name(), args)
			if err != nil {
				return nil, err
			}
			v := cur.Get(field)
			if v == nil {
				return starlark.False, nil
			}
			dom := env.Descriptor.Domain(field)
			return starlark.Bool(dom.Matches(strings.TrimSpace(core.Text(v)), codes...)), nil
		}),

		"populated": starlark.NewBuiltin("populated", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			field, _, err := stringArgs(b.Name(), args)
			if err != nil {
				return nil, err
			}
			return starlark.Bool(populated(*cur, field)), nil
		}),

		"table_max": starlark.NewBuiltin("table_max", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			table, rest, err := stringArgs(b.Name(), args)
			if err != nil || len(rest) != 1 {
				return nil, fmt.Errorf("%s: want (table, field)", b.Name())
			}
			ds, err := dataset(table)
			if err != nil {
				return nil, err
			}
			var best any
			for _, v := range ds.Column(rest[0]) {
				if v == nil {
					continue
				}
				if c, ok := core.Compare(v, best); best == nil || (ok && c > 0) {
					best = v
				}
			}
			if best == nil {
				return starlark.MakeInt(0), nil
			}
			return qcstar.GoToStarlark(best)
		}),

		"table_count": starlark.NewBuiltin("table_count", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			table, rest, err := stringArgs(b.Name(), args)
			if err != nil || len(rest) == 0 {
				return nil, fmt.Errorf("%s: want (table, field, *codes)", b.Name())
			}
			ds, err := dataset(table)
			if err != nil {
				return nil, err
			}
			field, codes := rest[0], rest[1:]
			var dom *catalog.Domain
			if env.Catalog != nil {
				if d, err := env.Catalog.Table(table, env.Descriptor.Schema); err == nil {
					dom = d.Domain(field)
				}
			}
			n := 0
			for _, v := range ds.Column(field) {
				if v == nil {
					continue
				}
				if len(codes) == 0 || dom.Matches(strings.TrimSpace(core.Text(v)), codes...) {
					n++
				}
			}
			return starlark.MakeInt(n), nil
		}),

		"row_count": starlark.NewBuiltin("row_count", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			table, _, err := stringArgs(b.Name(), args)
			if err != nil {
				return nil, err
			}
			ds, err := dataset(table)
			if err != nil {
				return nil, err
			}
			return starlark.MakeInt(ds.Len()), nil
		}),
	}
}

// stringArgs unpacks a builtin's positional string arguments.
func stringArgs(fn string, args starlark.Tuple) (first string, rest []string, err error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%s: missing arguments", fn)
	}
	out := make([]string, len(args))
	for i, a := range args {
		s, ok := starlark.AsString(a)
		if !ok {
			return "", nil, fmt.Errorf("%s: argument %d must be a string, got %s", fn, i+1, a.Type())
		}
		out[i] = s
	}
	return out[0], out[1:], nil
}
