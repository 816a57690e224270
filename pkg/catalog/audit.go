package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// AuditIssue is a rule that deserves human review.
type AuditIssue struct {
	Table   string `json:"table"`
	Rule    int    `json:"rule"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// sentinelOwner maps a sentinel literal to the classification that owns it.
var sentinelOwner = map[string]string{
	"NP":       "required",
	"-8888":    "required",
	"8/8/8888": "required",
	"-9999":    "applicable",
	"9/9/9999": "applicable",
}

// Audit reviews every table's rules for one schema year. It flags
// comparisons against the NULL sentinel owned by the other field
// classification, and rules that read fields the descriptor never
// declares.
func (c *Catalog) Audit(schema string) ([]AuditIssue, error) {
	var issues []AuditIssue
	for _, name := range c.order {
		d, err := c.Table(name, schema)
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool)
		for _, f := range d.Expected() {
			known[strings.ToUpper(f)] = true
		}
		for f := range d.DomainRefs {
			known[strings.ToUpper(f)] = true
		}
		known[strings.ToUpper(d.ID)] = true

		for i, r := range d.Rules {
			literals := make(map[string][]string)
			if r.Field != "" {
				literals[r.Field] = append(literals[r.Field], r.Values...)
			}
			for _, cond := range []*Cond{r.If, r.When, r.Expect, r.Where} {
				for f, vals := range cond.Literals() {
					literals[f] = append(literals[f], vals...)
				}
			}
			fields := slices.Clone(r.Parts)
			if r.Field != "" {
				fields = append(fields, r.Field)
			}
			for _, cond := range []*Cond{r.If, r.When, r.Expect} {
				fields = append(fields, cond.Fields()...)
			}

			for f, vals := range literals {
				class := "applicable"
				if d.IsRequired(baseField(f)) {
					class = "required"
				}
				for _, v := range vals {
					owner, ok := sentinelOwner[strings.TrimSpace(v)]
					if !ok || owner == class {
						continue
					}
					issues = append(issues, AuditIssue{
						Table: d.Name, Rule: i, Kind: r.Kind, Field: baseField(f),
						Message: fmt.Sprintf("%s is %s but the rule compares it with the %s sentinel %s", baseField(f), class, owner, v),
					})
				}
			}
			reported := make(map[string]bool)
			for _, f := range fields {
				key := strings.ToUpper(baseField(f))
				if !known[key] && !reported[key] {
					reported[key] = true
					issues = append(issues, AuditIssue{
						Table: d.Name, Rule: i, Kind: r.Kind, Field: baseField(f),
						Message: fmt.Sprintf("%s is not declared by %s", baseField(f), d.Name),
					})
				}
			}
		}
	}
	return issues, nil
}

// baseField strips a slice suffix such as FIRM_PAN[2:6].
func baseField(ref string) string {
	if i := strings.IndexByte(ref, '['); i >= 0 {
		return ref[:i]
	}
	return ref
}
