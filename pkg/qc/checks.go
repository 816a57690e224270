package qc

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
	"github.com/t968rs/FEMA-Prod-updates/pkg/rules"
)

// Reference tables of the standard checks.
const (
	SubmittalTable = "S_Submittal_Info"
	CitationTable  = "L_Source_Cit"

	dfirmIDField   = "DFIRM_ID"
	sourceCitField = "SOURCE_CIT"
)

// TableContext carries one table and the run-level values its checks
// compare against.
type TableContext struct {
	Dataset *core.Dataset
	Class   *Classification

	Mode       catalog.Mode
	Production bool
	// DFIRMIDs holds the distinct DFIRM_ID values of S_Submittal_Info.
	// The DFIRM_ID check is skipped while it is nil.
	DFIRMIDs map[string]bool
	// Citations holds the SOURCE_CIT values of L_Source_Cit.
	Citations map[string]bool

	Catalog *catalog.Catalog
	Lookup  rules.Lookup
	Logger  *slog.Logger
}

func (tc *TableContext) logger() *slog.Logger {
	if tc.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return tc.Logger
}

func (tc *TableContext) id(desc *catalog.Descriptor, row int) string {
	return strings.TrimSpace(core.Text(tc.Dataset.Value(row, desc.ID)))
}

func missingFields(class *Classification) []core.Finding {
	if len(class.Missing) == 0 {
		return nil
	}
	return []core.Finding{core.NewFinding("", "Missing fields: "+strings.Join(class.Missing, ", "))}
}

func checkDFIRMID(desc *catalog.Descriptor, tc *TableContext) []core.Finding {
	if tc.DFIRMIDs == nil || !tc.Dataset.Has(dfirmIDField) {
		return nil
	}
	var out []core.Finding
	for i := range tc.Dataset.Rows {
		v := tc.Dataset.Value(i, dfirmIDField)
		if v != nil && tc.DFIRMIDs[core.Text(v)] {
			continue
		}
		out = append(out, core.NewFinding(tc.id(desc, i), fmt.Sprintf(
			"DFIRM_ID value of \"%s\" does not match the DFIRM_ID value in %s", core.Display(v), SubmittalTable)))
	}
	return out
}

func checkSourceCit(desc *catalog.Descriptor, tc *TableContext) []core.Finding {
	if !tc.Dataset.Has(sourceCitField) {
		return nil
	}
	var out []core.Finding
	for i := range tc.Dataset.Rows {
		v := tc.Dataset.Value(i, sourceCitField)
		if v != nil && tc.Citations[core.Text(v)] {
			continue
		}
		out = append(out, core.NewFinding(tc.id(desc, i), fmt.Sprintf(
			"SOURCE_CIT value of \"%s\" does not match any values in %s", core.Display(v), CitationTable)))
	}
	return out
}

func checkUniqueID(desc *catalog.Descriptor, tc *TableContext) []core.Finding {
	if desc.ID == "" || !tc.Dataset.Has(desc.ID) {
		return nil
	}
	var out []core.Finding
	for _, dup := range rules.Duplicates(tc.Dataset.Column(desc.ID)) {
		out = append(out, core.NewFinding(dup, "Duplicate unique id found in "+desc.ID))
	}
	return out
}

// checkDomains compares every domain-bound field against its domain's
// codes or labels. Applicable fields may be blank.
func checkDomains(desc *catalog.Descriptor, tc *TableContext) []core.Finding {
	var out []core.Finding
	for _, f := range tc.Class.Fields {
		dom := desc.Domain(f.Name)
		if dom == nil || f.Classification == core.Skipped {
			continue
		}
		for i := range tc.Dataset.Rows {
			v := tc.Dataset.Value(i, f.Name)
			if v != nil && dom.Contains(strings.TrimSpace(core.Text(v)), tc.Mode) {
				continue
			}
			if f.Classification == core.Applicable && core.IsBlank(v) {
				continue
			}
			out = append(out, core.NewFinding(tc.id(desc, i),
				fmt.Sprintf("%s value of \"%s\" is not in domain", f.Name, core.Display(v))))
		}
	}
	return out
}

// checkNulls enforces the NULL conventions, Required fields first.
func checkNulls(desc *catalog.Descriptor, tc *TableContext) []core.Finding {
	var out []core.Finding
	for _, f := range tc.Class.Required() {
		for i := range tc.Dataset.Rows {
			if msg := requiredNull(f, tc.Dataset.Value(i, f.Name)); msg != "" {
				out = append(out, core.NewFinding(tc.id(desc, i), msg))
			}
		}
	}
	for _, f := range tc.Class.Applicable() {
		for i := range tc.Dataset.Rows {
			if msg := applicableNull(f, tc.Dataset.Value(i, f.Name)); msg != "" {
				out = append(out, core.NewFinding(tc.id(desc, i), msg))
			}
		}
	}
	return out
}

func nullMessage(field string, v any, kind string) string {
	return fmt.Sprintf("%s value of \"%s\" is not an acceptable NULL value for %s fields", field, core.Display(v), kind)
}

// requiredNull returns the violation of a Required field value, if any.
func requiredNull(f core.Field, v any) string {
	switch f.Type {
	case core.FieldText:
		if s, ok := v.(string); v == nil || ok && strings.TrimSpace(s) == "" {
			return nullMessage(f.Name, v, "required")
		}
	case core.FieldInteger, core.FieldDecimal:
		if n, ok := core.Number(v); v == nil || ok && n == core.ApplicableNumericSentinel {
			return nullMessage(f.Name, v, "required")
		}
	case core.FieldDate:
		if strings.Contains(core.Text(v), core.ApplicableDateMarker) {
			return f.Name + " value of 9/9/9999 is not an acceptable NULL value for required fields"
		}
		if core.IsBlank(v) {
			return f.Name + " should not be NULL"
		}
	}
	return ""
}

// applicableNull returns the violation of an Applicable field value, if any.
func applicableNull(f core.Field, v any) string {
	switch f.Type {
	case core.FieldText:
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > 1 && strings.TrimSpace(s) == "" {
			return nullMessage(f.Name, v, "applicable")
		}
	case core.FieldInteger, core.FieldDecimal:
		if n, ok := core.Number(v); v == nil || ok && n == core.RequiredNumericSentinel {
			return nullMessage(f.Name, v, "applicable")
		}
	case core.FieldDate:
		if strings.Contains(core.Text(v), core.RequiredDateMarker) {
			return f.Name + " value of 8/8/8888 is not an acceptable NULL value for applicable fields"
		}
		if core.IsBlank(v) {
			return f.Name + " should not be NULL"
		}
	}
	return ""
}

// checkHygiene flags text values with leading or trailing whitespace.
// Single-character values are tolerated as placeholders.
func checkHygiene(desc *catalog.Descriptor, tc *TableContext) []core.Finding {
	var fields []core.Field
	for _, f := range tc.Class.Fields {
		if f.Type == core.FieldText && f.Classification != core.Skipped && !strings.EqualFold(f.Name, desc.ID) {
			fields = append(fields, f)
		}
	}
	var out []core.Finding
	for i := range tc.Dataset.Rows {
		for _, f := range fields {
			s, ok := tc.Dataset.Value(i, f.Name).(string)
			if !ok || utf8.RuneCountInString(s) <= 1 || len(s) == len(strings.TrimSpace(s)) {
				continue
			}
			out = append(out, core.NewFinding(tc.id(desc, i), f.Name+" has an extra space."))
		}
	}
	return out
}
