package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ValidationError aggregates every defect found in a catalog.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog has %d problem(s):\n  %s", len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// Validate checks cross references inside the catalog: domain references,
// referenced tables, schema years and task tables.
func (c *Catalog) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.DefaultSchema != "" && !c.SupportsSchema(c.DefaultSchema) {
		add("default schema %s is not listed in schemas", c.DefaultSchema)
	}

	for _, name := range c.order {
		t := c.tables[strings.ToLower(name)]
		if t.ID == "" {
			add("%s: id field is required", t.Name)
		}
		for f, ref := range t.Domains {
			if _, ok := c.domains[ref]; !ok {
				add("%s.%s: unknown domain %s", t.Name, f, ref)
			}
		}
		for i, v := range t.Variants {
			for _, s := range v.Schemas {
				if !c.SupportsSchema(s) {
					add("%s: variant %d names unknown schema %s", t.Name, i, s)
				}
			}
			for f, ref := range v.Domains {
				if _, ok := c.domains[ref]; !ok {
					add("%s.%s: variant %d uses unknown domain %s", t.Name, f, i, ref)
				}
			}
		}
		for i, r := range t.Rules {
			if r.Kind == "" {
				add("%s: rule %d has no kind", t.Name, i)
			}
			for _, s := range r.Schemas {
				if !c.SupportsSchema(s) {
					add("%s: rule %d names unknown schema %s", t.Name, i, s)
				}
			}
			if r.Table != "" && !c.HasTable(r.Table) {
				add("%s: rule %d references unknown table %s", t.Name, i, r.Table)
			}
			for _, src := range r.Sources {
				if !c.HasTable(src.Table) {
					add("%s: rule %d references unknown table %s", t.Name, i, src.Table)
				}
			}
		}
	}

	seen := make(map[string]bool)
	for _, task := range c.tasks {
		if seen[strings.ToLower(task.Name)] {
			add("task %q is defined twice", task.Name)
		}
		seen[strings.ToLower(task.Name)] = true
		for _, tbl := range task.Tables {
			if !c.HasTable(tbl) {
				add("task %q lists unknown table %s", task.Name, tbl)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return &ValidationError{Problems: problems}
}

// IsValidationError reports whether err carries catalog problems.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
