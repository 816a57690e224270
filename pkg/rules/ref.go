package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// fieldRef is a field name with an optional substring slice, written
// FIELD[lo:hi] with Python semantics (negative bounds count from the end).
type fieldRef struct {
	Name   string
	sliced bool
	lo, hi *int
}

var refPattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:\[\s*(-?\d*)\s*:\s*(-?\d*)\s*\])?\s*$`)

func parseRef(s string) (fieldRef, error) {
	m := refPattern.FindStringSubmatch(s)
	if m == nil {
		return fieldRef{}, fmt.Errorf("invalid field reference %q", s)
	}
	ref := fieldRef{Name: m[1]}
	if strings.Contains(s, "[") {
		ref.sliced = true
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			ref.lo = &n
		}
		if m[3] != "" {
			n, _ := strconv.Atoi(m[3])
			ref.hi = &n
		}
	}
	return ref, nil
}

func (r fieldRef) String() string {
	if !r.sliced {
		return r.Name
	}
	b := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	return fmt.Sprintf("%s[%s:%s]", r.Name, b(r.lo), b(r.hi))
}

// value reads the field from row, applying the slice to its text form.
// A sliced NULL stays NULL.
func (r fieldRef) value(row Row) any {
	v := row.Get(r.Name)
	if !r.sliced || v == nil {
		return v
	}
	return pySlice(core.Text(v), r.lo, r.hi)
}

// pySlice slices s by runes with Python's bound clamping.
func pySlice(s string, lo, hi *int) string {
	runes := []rune(s)
	n := len(runes)
	clamp := func(p *int, def int) int {
		if p == nil {
			return def
		}
		i := *p
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	start, end := clamp(lo, 0), clamp(hi, n)
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}
