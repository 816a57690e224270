package qc

import (
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// flagDomain is the tri-state flag domain. Its fields are one character
// long even where the storage reports no declared length.
const flagDomain = "D_TrueFalse"

// Classification is the Field Classifier's output for one table.
type Classification struct {
	// Fields are the live fields with their classification set.
	Fields []core.Field
	// Missing lists expected fields the live table lacks.
	Missing []string
}

// Required returns the Required fields in live order.
func (c *Classification) Required() []core.Field { return c.only(core.Required) }

// Applicable returns the Applicable fields in live order.
func (c *Classification) Applicable() []core.Field { return c.only(core.Applicable) }

func (c *Classification) only(kind core.Classification) []core.Field {
	var out []core.Field
	for _, f := range c.Fields {
		if f.Classification == kind {
			out = append(out, f)
		}
	}
	return out
}

// Classify partitions live fields into Required, Applicable and Skipped
// and lists the descriptor's expected fields that are absent.
func Classify(fields []core.Field, desc *catalog.Descriptor) *Classification {
	c := &Classification{Fields: make([]core.Field, len(fields))}
	live := make(map[string]bool, len(fields))
	for i, f := range fields {
		live[strings.ToUpper(f.Name)] = true
		switch {
		case core.IsSystemField(f.Name):
			f.Classification = core.Skipped
		case desc.IsRequired(f.Name):
			f.Classification = core.Required
		default:
			f.Classification = core.Applicable
		}
		c.Fields[i] = f
	}
	for _, name := range desc.Expected() {
		if !live[strings.ToUpper(name)] {
			c.Missing = append(c.Missing, name)
		}
	}
	return c
}

// AdjustFields fills in what the storage could not report: text fields
// bound to the flag domain without a declared length are one character.
func AdjustFields(fields []core.Field, desc *catalog.Descriptor) {
	if desc == nil {
		return
	}
	for i, f := range fields {
		if f.Type != core.FieldText || f.MaxLength != 0 {
			continue
		}
		if domainName(desc, f.Name) == flagDomain {
			fields[i].MaxLength = 1
		}
	}
}

// domainName returns the base domain name bound to field.
func domainName(desc *catalog.Descriptor, field string) string {
	for f, ref := range desc.DomainRefs {
		if strings.EqualFold(f, field) {
			name, _, _ := strings.Cut(ref, "@")
			return name
		}
	}
	return ""
}
