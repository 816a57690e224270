package rules

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

func init() {
	Register(KindInfo{
		Name: "populated_if", Scope: ScopeRow,
		Description: "field must be populated when the if condition holds (or always)",
		Keys:        []string{"field", "if", "when", "message"},
	}, compilePopulatedIf)
	Register(KindInfo{
		Name: "empty_if", Scope: ScopeRow,
		Description: "field must not be populated when the if condition holds",
		Keys:        []string{"field", "if", "when", "message"},
	}, compileEmptyIf)
	Register(KindInfo{
		Name: "assert", Scope: ScopeRow,
		Description: "expect must hold on every row passing when",
		Keys:        []string{"when", "expect", "message"},
	}, compileAssert)
	Register(KindInfo{
		Name: "forbid", Scope: ScopeRow,
		Description: "field must not carry any of values nor any of the coded codes or labels",
		Keys:        []string{"field", "values", "coded", "when", "message"},
	}, compileForbid)
	Register(KindInfo{
		Name: "concat", Scope: ScopeRow,
		Description: "field must equal the concatenation of parts",
		Keys:        []string{"field", "parts", "when", "message"},
	}, compileConcat)
	Register(KindInfo{
		Name: "reference_value", Scope: ScopeRow,
		Description: "field must equal the canonical ref_field value of table",
		Keys:        []string{"field", "table", "ref_field", "when", "message"},
	}, compileReferenceValue)
}

// newBase compiles the when guard and records the rule's own fields.
func newBase(spec catalog.RuleSpec, index int, desc *catalog.Descriptor, fields ...string) (*base, error) {
	when, whenFields, err := compileCond(spec.When, desc)
	if err != nil {
		return nil, fmt.Errorf("when: %w", err)
	}
	b := &base{spec: spec, index: index, when: when}
	b.need(fields...)
	b.need(whenFields...)
	return b, nil
}

func (b *base) need(fields ...string) {
	for _, f := range fields {
		if f == "" {
			continue
		}
		dup := false
		for _, have := range b.fields {
			if strings.EqualFold(have, f) {
				dup = true
				break
			}
		}
		if !dup {
			b.fields = append(b.fields, f)
		}
	}
}

func requireKeys(spec catalog.RuleSpec, keys ...string) error {
	var errs []error
	for _, k := range keys {
		var missing bool
		switch k {
		case "field":
			missing = spec.Field == ""
		case "message":
			missing = spec.Message == ""
		case "table":
			missing = spec.Table == ""
		case "expect":
			missing = spec.Expect == nil
		case "parts":
			missing = len(spec.Parts) == 0
		case "expr":
			missing = spec.Expr == ""
		case "sources":
			missing = len(spec.Sources) == 0
		}
		if missing {
			errs = append(errs, fmt.Errorf("missing %s", k))
		}
	}
	return errors.Join(errs...)
}

// populationRule covers populated_if and empty_if.
type populationRule struct {
	*base
	cond      predicate
	wantEmpty bool
}

func compilePopulation(spec catalog.RuleSpec, index int, desc *catalog.Descriptor, wantEmpty bool) (Rule, error) {
	if err := requireKeys(spec, "field", "message"); err != nil {
		return nil, err
	}
	b, err := newBase(spec, index, desc, spec.Field)
	if err != nil {
		return nil, err
	}
	cond, fields, err := compileCond(spec.If, desc)
	if err != nil {
		return nil, fmt.Errorf("if: %w", err)
	}
	b.need(fields...)
	return &populationRule{base: b, cond: cond, wantEmpty: wantEmpty}, nil
}

func compilePopulatedIf(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	return compilePopulation(spec, index, desc, false)
}

func compileEmptyIf(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	return compilePopulation(spec, index, desc, true)
}

func (r *populationRule) Check(_ context.Context, env *Env) ([]core.Finding, error) {
	return r.eachRow(env, r.spec.Message, func(row Row) bool {
		if r.cond != nil && !r.cond(row) {
			return false
		}
		return populated(row, r.spec.Field) == r.wantEmpty
	}), nil
}

type assertRule struct {
	*base
	expect predicate
}

func compileAssert(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "expect", "message"); err != nil {
		return nil, err
	}
	b, err := newBase(spec, index, desc)
	if err != nil {
		return nil, err
	}
	expect, fields, err := compileCond(spec.Expect, desc)
	if err != nil {
		return nil, fmt.Errorf("expect: %w", err)
	}
	b.need(fields...)
	return &assertRule{base: b, expect: expect}, nil
}

func (r *assertRule) Check(_ context.Context, env *Env) ([]core.Finding, error) {
	return r.eachRow(env, r.spec.Message, func(row Row) bool { return !r.expect(row) }), nil
}

type forbidRule struct {
	*base
	domain *catalog.Domain
}

func compileForbid(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "field", "message"); err != nil {
		return nil, err
	}
	if len(spec.Values) == 0 && len(spec.Coded) == 0 {
		return nil, errors.New("forbid needs values or coded")
	}
	b, err := newBase(spec, index, desc, spec.Field)
	if err != nil {
		return nil, err
	}
	return &forbidRule{base: b, domain: desc.Domain(spec.Field)}, nil
}

func (r *forbidRule) Check(_ context.Context, env *Env) ([]core.Finding, error) {
	return r.eachRow(env, r.spec.Message, func(row Row) bool {
		v := row.Get(r.spec.Field)
		if v == nil {
			return false
		}
		if anyLiteral(v, r.spec.Values) {
			return true
		}
		return len(r.spec.Coded) > 0 && r.domain.Matches(strings.TrimSpace(core.Text(v)), r.spec.Coded...)
	}), nil
}

type concatRule struct {
	*base
}

func compileConcat(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "field", "parts", "message"); err != nil {
		return nil, err
	}
	b, err := newBase(spec, index, desc, append([]string{spec.Field}, spec.Parts...)...)
	if err != nil {
		return nil, err
	}
	return &concatRule{base: b}, nil
}

func (r *concatRule) Check(_ context.Context, env *Env) ([]core.Finding, error) {
	return r.eachRow(env, r.spec.Message, func(row Row) bool {
		var sb strings.Builder
		for _, p := range r.spec.Parts {
			sb.WriteString(core.Text(row.Get(p)))
		}
		return core.Text(row.Get(r.spec.Field)) != sb.String()
	}), nil
}

type referenceValueRule struct {
	*base
	refField string
}

func compileReferenceValue(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	if err := requireKeys(spec, "field", "table"); err != nil {
		return nil, err
	}
	if spec.Message == "" {
		spec.Message = fmt.Sprintf("%s value of {%s} does not match the %s value in %s",
			spec.Field, spec.Field, cmp.Or(spec.RefField, spec.Field), spec.Table)
	}
	b, err := newBase(spec, index, desc, spec.Field)
	if err != nil {
		return nil, err
	}
	return &referenceValueRule{base: b, refField: cmp.Or(spec.RefField, spec.Field)}, nil
}

func (r *referenceValueRule) Check(ctx context.Context, env *Env) ([]core.Finding, error) {
	ref, err := env.Lookup.Dataset(ctx, r.spec.Table)
	if err != nil {
		return nil, err
	}
	values := ref.Distinct(r.refField)
	if len(values) == 0 {
		env.logger().Debug("no canonical value, rule skipped",
			"table", env.Table.Name, "rule", r.index, "ref_table", r.spec.Table)
		return nil, nil
	}
	canonical := strings.TrimSpace(values[0])
	return r.eachRow(env, r.spec.Message, func(row Row) bool {
		return strings.TrimSpace(core.Text(row.Get(r.spec.Field))) != canonical
	}), nil
}

// Check runs the wrapped rule only for production tasks.
func (p productionOnly) Check(ctx context.Context, env *Env) ([]core.Finding, error) {
	if !env.Production {
		return nil, nil
	}
	return p.Rule.Check(ctx, env)
}

