package qc

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
	"github.com/t968rs/FEMA-Prod-updates/pkg/rules"
)

// TableValidator validates one table kind. The registry resolves it by
// table name.
type TableValidator interface {
	// Descriptor returns the resolved catalog entry of the table.
	Descriptor() *catalog.Descriptor
	// Classify partitions the live fields and lists missing ones.
	Classify(fields []core.Field) *Classification
	// CheckKeys runs the DFIRM_ID, SOURCE_CIT and unique id checks.
	CheckKeys(tc *TableContext) []core.Finding
	// CheckDomains runs the Domain Checker over every domain field.
	CheckDomains(tc *TableContext) []core.Finding
	// CheckNulls enforces the Required and Applicable NULL conventions.
	CheckNulls(tc *TableContext) []core.Finding
	// CheckHygiene flags text values with extra whitespace.
	CheckHygiene(tc *TableContext) []core.Finding
	// CheckRules evaluates the table's catalog rules in order.
	CheckRules(ctx context.Context, tc *TableContext) ([]core.Finding, error)
}

// Validate runs every check of v. Missing fields short-circuit the
// remaining checks. Findings come back sorted by record id, then message,
// which is the order reports list them in.
func Validate(ctx context.Context, v TableValidator, tc *TableContext) ([]core.Finding, error) {
	tc.Class = v.Classify(tc.Dataset.Fields)
	if missing := missingFields(tc.Class); missing != nil {
		tc.logger().Warn("unable to validate table, fields missing",
			"table", tc.Dataset.Name, "missing", strings.Join(tc.Class.Missing, ", "))
		return missing, nil
	}

	var out []core.Finding
	out = append(out, v.CheckKeys(tc)...)
	out = append(out, v.CheckDomains(tc)...)
	out = append(out, v.CheckNulls(tc)...)
	out = append(out, v.CheckHygiene(tc)...)
	found, err := v.CheckRules(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("rules of %s: %w", tc.Dataset.Name, err)
	}
	out = append(out, found...)
	sortFindings(out)
	return out, nil
}

func sortFindings(findings []core.Finding) {
	slices.SortStableFunc(findings, func(a, b core.Finding) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Message, b.Message))
	})
}

// catalogValidator validates a table from its catalog descriptor and
// compiled rules.
type catalogValidator struct {
	desc  *catalog.Descriptor
	rules []rules.Rule
}

// NewCatalogValidator compiles the descriptor's rules.
func NewCatalogValidator(desc *catalog.Descriptor) (TableValidator, error) {
	compiled, err := rules.Compile(desc)
	if err != nil {
		return nil, err
	}
	return &catalogValidator{desc: desc, rules: compiled}, nil
}

func (v *catalogValidator) Descriptor() *catalog.Descriptor { return v.desc }

func (v *catalogValidator) Classify(fields []core.Field) *Classification {
	return Classify(fields, v.desc)
}

func (v *catalogValidator) CheckKeys(tc *TableContext) []core.Finding {
	out := checkDFIRMID(v.desc, tc)
	out = append(out, checkSourceCit(v.desc, tc)...)
	return append(out, checkUniqueID(v.desc, tc)...)
}

func (v *catalogValidator) CheckDomains(tc *TableContext) []core.Finding {
	return checkDomains(v.desc, tc)
}

func (v *catalogValidator) CheckNulls(tc *TableContext) []core.Finding {
	return checkNulls(v.desc, tc)
}

func (v *catalogValidator) CheckHygiene(tc *TableContext) []core.Finding {
	return checkHygiene(v.desc, tc)
}

func (v *catalogValidator) CheckRules(ctx context.Context, tc *TableContext) ([]core.Finding, error) {
	env := &rules.Env{
		Table:      tc.Dataset,
		Descriptor: v.desc,
		Catalog:    tc.Catalog,
		Lookup:     tc.Lookup,
		Production: tc.Production,
		Logger:     tc.Logger,
	}
	var out []core.Finding
	for _, r := range v.rules {
		if missing := absent(tc.Dataset, r.Fields()); len(missing) > 0 {
			tc.logger().Debug("rule skipped, fields missing",
				"table", tc.Dataset.Name, "rule", r.Index(), "kind", r.Kind(), "missing", strings.Join(missing, ", "))
			continue
		}
		found, err := r.Check(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", r.Index(), r.Kind(), err)
		}
		out = append(out, found...)
	}
	return out, nil
}

func absent(ds *core.Dataset, fields []string) []string {
	var out []string
	for _, f := range fields {
		if !ds.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Registry maps table names to validators for one schema year.
type Registry struct {
	schema     string
	validators map[string]TableValidator
}

// NewRegistry builds a catalog validator for every catalog table.
func NewRegistry(cat *catalog.Catalog, schema string) (*Registry, error) {
	r := &Registry{schema: schema, validators: make(map[string]TableValidator)}
	for _, name := range cat.TableNames() {
		desc, err := cat.Table(name, schema)
		if err != nil {
			return nil, err
		}
		v, err := NewCatalogValidator(desc)
		if err != nil {
			return nil, err
		}
		r.Register(v)
	}
	return r, nil
}

// Register adds or replaces the validator for its table.
func (r *Registry) Register(v TableValidator) {
	r.validators[strings.ToLower(v.Descriptor().Name)] = v
}

// Get returns the validator of table.
func (r *Registry) Get(table string) (TableValidator, bool) {
	v, ok := r.validators[strings.ToLower(table)]
	return v, ok
}

// Tables returns the registered table names, sorted.
func (r *Registry) Tables() []string {
	out := make([]string, 0, len(r.validators))
	for _, v := range r.validators {
		out = append(out, v.Descriptor().Name)
	}
	slices.Sort(out)
	return out
}

// Schema returns the schema year the validators were resolved for.
func (r *Registry) Schema() string { return r.schema }
