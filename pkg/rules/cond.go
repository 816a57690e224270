package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// predicate is a compiled condition.
type predicate func(Row) bool

// populated reports whether field carries a real value in row.
func populated(row Row, field string) bool {
	f, ok := row.Field(field)
	if !ok {
		return false
	}
	return core.IsPopulated(row.Get(field), f)
}

// compileCond compiles c and returns the predicate with the base names of
// every field it reads. A nil condition compiles to nil.
func compileCond(c *catalog.Cond, desc *catalog.Descriptor) (predicate, []string, error) {
	if c == nil {
		return nil, nil, nil
	}

	set := 0
	for _, b := range []bool{
		len(c.All) > 0, len(c.Any) > 0, c.Not != nil,
		c.Populated != "", c.Empty != "", c.Present != "", c.Field != "",
	} {
		if b {
			set++
		}
	}
	if set != 1 {
		return nil, nil, fmt.Errorf("condition must use exactly one of all, any, not, populated, empty, present or field")
	}

	switch {
	case len(c.All) > 0 || len(c.Any) > 0:
		list := c.All
		if len(c.Any) > 0 {
			list = c.Any
		}
		preds := make([]predicate, len(list))
		var fields []string
		for i := range list {
			p, f, err := compileCond(&list[i], desc)
			if err != nil {
				return nil, nil, err
			}
			preds[i] = p
			fields = append(fields, f...)
		}
		if len(c.All) > 0 {
			return func(r Row) bool {
				for _, p := range preds {
					if !p(r) {
						return false
					}
				}
				return true
			}, fields, nil
		}
		return func(r Row) bool {
			for _, p := range preds {
				if p(r) {
					return true
				}
			}
			return false
		}, fields, nil

	case c.Not != nil:
		p, fields, err := compileCond(c.Not, desc)
		if err != nil {
			return nil, nil, err
		}
		return func(r Row) bool { return !p(r) }, fields, nil

	case c.Populated != "":
		name := c.Populated
		return func(r Row) bool { return populated(r, name) }, []string{name}, nil

	case c.Empty != "":
		name := c.Empty
		return func(r Row) bool { return !populated(r, name) }, []string{name}, nil

	case c.Present != "":
		name := c.Present
		return func(r Row) bool { return !core.IsBlank(r.Get(name)) }, []string{name}, nil
	}

	return compileFieldTest(c, desc)
}

// compileFieldTest compiles {field: F, op: ...}. Several ops on one test
// must all hold.
func compileFieldTest(c *catalog.Cond, desc *catalog.Descriptor) (predicate, []string, error) {
	ref, err := parseRef(c.Field)
	if err != nil {
		return nil, nil, err
	}
	fields := []string{ref.Name}
	var tests []func(v any, r Row) bool

	if c.Eq != nil {
		lit := *c.Eq
		tests = append(tests, func(v any, _ Row) bool { return v != nil && equalLiteral(v, lit) })
	}
	if c.Ne != nil {
		lit := *c.Ne
		tests = append(tests, func(v any, _ Row) bool { return v == nil || !equalLiteral(v, lit) })
	}
	if len(c.In) > 0 {
		lits := c.In
		tests = append(tests, func(v any, _ Row) bool { return v != nil && anyLiteral(v, lits) })
	}
	if len(c.NotIn) > 0 {
		lits := c.NotIn
		tests = append(tests, func(v any, _ Row) bool { return v == nil || !anyLiteral(v, lits) })
	}
	if len(c.Coded) > 0 {
		codes := c.Coded
		dom := desc.Domain(ref.Name)
		tests = append(tests, func(v any, _ Row) bool {
			return v != nil && dom.Matches(strings.TrimSpace(core.Text(v)), codes...)
		})
	}
	if c.Matches != "" {
		re, err := regexp.Compile(c.Matches)
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", c.Field, err)
		}
		tests = append(tests, func(v any, _ Row) bool { return v != nil && re.MatchString(core.Text(v)) })
	}
	if c.Len != nil {
		n := *c.Len
		tests = append(tests, func(v any, _ Row) bool {
			return v != nil && utf8.RuneCountInString(core.Text(v)) == n
		})
	}
	for _, b := range []struct {
		lit *float64
		ok  func(float64, float64) bool
	}{
		{c.Gt, func(a, b float64) bool { return a > b }},
		{c.Ge, func(a, b float64) bool { return a >= b }},
		{c.Lt, func(a, b float64) bool { return a < b }},
		{c.Le, func(a, b float64) bool { return a <= b }},
	} {
		if b.lit == nil {
			continue
		}
		lit, ok := *b.lit, b.ok
		tests = append(tests, func(v any, _ Row) bool {
			n, isNum := core.Number(v)
			return isNum && ok(n, lit)
		})
	}
	for _, b := range []struct {
		other string
		ok    func(int) bool
	}{
		{c.EqField, func(c int) bool { return c == 0 }},
		{c.GtField, func(c int) bool { return c > 0 }},
		{c.GeField, func(c int) bool { return c >= 0 }},
		{c.LtField, func(c int) bool { return c < 0 }},
		{c.LeField, func(c int) bool { return c <= 0 }},
	} {
		if b.other == "" {
			continue
		}
		other, err := parseRef(b.other)
		if err != nil {
			return nil, nil, err
		}
		fields = append(fields, other.Name)
		ok := b.ok
		tests = append(tests, func(v any, r Row) bool {
			cmp, valid := core.Compare(trimmed(v), trimmed(other.value(r)))
			return valid && ok(cmp)
		})
	}
	if c.NeField != "" {
		other, err := parseRef(c.NeField)
		if err != nil {
			return nil, nil, err
		}
		fields = append(fields, other.Name)
		tests = append(tests, func(v any, r Row) bool {
			cmp, valid := core.Compare(trimmed(v), trimmed(other.value(r)))
			return !valid || cmp != 0
		})
	}

	if len(tests) == 0 {
		return nil, nil, errors.New("field test " + c.Field + " has no operator")
	}
	return func(r Row) bool {
		v := ref.value(r)
		for _, t := range tests {
			if !t(v, r) {
				return false
			}
		}
		return true
	}, fields, nil
}

func trimmed(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// equalLiteral compares a value with an authored literal, numerically when
// both are numbers, otherwise on trimmed text.
func equalLiteral(v any, lit string) bool {
	if core.Equal(v, lit) {
		return true
	}
	return strings.TrimSpace(core.Text(v)) == lit
}

func anyLiteral(v any, lits []string) bool {
	for _, l := range lits {
		if equalLiteral(v, l) {
			return true
		}
	}
	return false
}
