package catalog

import (
	"slices"
	"strings"
)

// tableDoc is the authored form of one table, before variant resolution.
type tableDoc struct {
	Name     string            `yaml:"name"`
	ID       string            `yaml:"id"`
	Required []string          `yaml:"required"`
	Fields   []string          `yaml:"fields"`
	Domains  map[string]string `yaml:"domains"`
	Variants []Variant         `yaml:"variants"`
	Rules    []RuleSpec        `yaml:"rules"`
}

// Variant patches a table for the listed schema years.
type Variant struct {
	Schemas        []string          `yaml:"schemas"`
	Domains        map[string]string `yaml:"domains"`
	RequiredAdd    []string          `yaml:"required_add"`
	RequiredRemove []string          `yaml:"required_remove"`
	FieldsAdd      []string          `yaml:"fields_add"`
}

// Descriptor is a table resolved for one schema year. Descriptors are
// built fresh on every lookup; the catalog itself is never mutated.
type Descriptor struct {
	Name     string
	ID       string
	Schema   string
	Required []string
	Fields   []string
	// DomainRefs maps field name to domain reference (NAME or NAME@YEAR).
	DomainRefs map[string]string
	Rules      []RuleSpec

	domains map[string]*Domain
}

// Expected returns the required fields followed by the extra fields,
// without duplicates. These are the fields the live table must carry.
func (d *Descriptor) Expected() []string {
	out := make([]string, 0, len(d.Required)+len(d.Fields))
	seen := make(map[string]bool)
	for _, f := range append(slices.Clone(d.Required), d.Fields...) {
		k := strings.ToUpper(f)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// IsRequired reports whether field is on the required list.
func (d *Descriptor) IsRequired(field string) bool {
	for _, f := range d.Required {
		if strings.EqualFold(f, field) {
			return true
		}
	}
	return false
}

// Domain returns the resolved domain bound to field, if any.
func (d *Descriptor) Domain(field string) *Domain {
	return d.domains[strings.ToUpper(field)]
}

// DomainFields returns the fields that have a domain, sorted.
func (d *Descriptor) DomainFields() []string {
	out := make([]string, 0, len(d.DomainRefs))
	for f := range d.DomainRefs {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func (t *tableDoc) resolve(schema string, domains map[string]*Domain) *Descriptor {
	d := &Descriptor{
		Name:       t.Name,
		ID:         t.ID,
		Schema:     schema,
		Required:   slices.Clone(t.Required),
		Fields:     slices.Clone(t.Fields),
		DomainRefs: make(map[string]string, len(t.Domains)),
		domains:    make(map[string]*Domain, len(t.Domains)),
	}
	for f, ref := range t.Domains {
		d.DomainRefs[f] = ref
	}

	for _, v := range t.Variants {
		if !slices.Contains(v.Schemas, schema) {
			continue
		}
		for _, f := range v.RequiredRemove {
			d.Required = slices.DeleteFunc(d.Required, func(s string) bool { return strings.EqualFold(s, f) })
		}
		for _, f := range v.RequiredAdd {
			if !d.IsRequired(f) {
				d.Required = append(d.Required, f)
			}
		}
		d.Fields = append(d.Fields, v.FieldsAdd...)
		for f, ref := range v.Domains {
			d.DomainRefs[f] = ref
		}
	}

	for f, ref := range d.DomainRefs {
		if dom, ok := domains[ref]; ok {
			d.domains[strings.ToUpper(f)] = dom
		}
	}

	for _, r := range t.Rules {
		if len(r.Schemas) > 0 && !slices.Contains(r.Schemas, schema) {
			continue
		}
		d.Rules = append(d.Rules, r)
	}
	return d
}
