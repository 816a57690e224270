package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// tableContext classifies ds against desc the way Validate does.
func tableContext(desc *catalog.Descriptor, ds *core.Dataset) *TableContext {
	return &TableContext{Dataset: ds, Class: Classify(ds.Fields, desc), Mode: catalog.ModeCoded}
}

func lines(findings []core.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.ID + " | " + f.Message
	}
	return out
}

func TestRequiredNull(t *testing.T) {
	text := core.Field{Name: "OWNER", Type: core.FieldText, MaxLength: 100}
	num := core.Field{Name: "LEN", Type: core.FieldDecimal}
	date := core.Field{Name: "EFF_DATE", Type: core.FieldDate}

	tests := []struct {
		name  string
		field core.Field
		value any
		want  string
	}{
		{"text value", text, "City", ""},
		{"text sentinel", text, "NP", ""},
		{"text null", text, nil, `OWNER value of "NULL" is not an acceptable NULL value for required fields`},
		{"text blank", text, "   ", `OWNER value of "   " is not an acceptable NULL value for required fields`},
		{"text empty", text, "", `OWNER value of "" is not an acceptable NULL value for required fields`},
		{"numeric sentinel", num, -8888.0, ""},
		{"numeric applicable sentinel", num, -9999.0, `LEN value of "-9999" is not an acceptable NULL value for required fields`},
		{"numeric null", num, nil, `LEN value of "NULL" is not an acceptable NULL value for required fields`},
		{"numeric zero", num, 0.0, ""},
		{"date sentinel", date, "8/8/8888", ""},
		{"date applicable sentinel", date, "9/9/9999", "EFF_DATE value of 9/9/9999 is not an acceptable NULL value for required fields"},
		{"date null", date, nil, "EFF_DATE should not be NULL"},
		{"date value", date, "2021-06-30", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, requiredNull(tt.field, tt.value))
		})
	}
}

func TestApplicableNull(t *testing.T) {
	text := core.Field{Name: "NOTES", Type: core.FieldText, MaxLength: 100}
	num := core.Field{Name: "FREEBOARD", Type: core.FieldInteger}
	date := core.Field{Name: "PAL_DATE", Type: core.FieldDate}

	tests := []struct {
		name  string
		field core.Field
		value any
		want  string
	}{
		{"text null", text, nil, ""},
		{"text single space", text, " ", ""},
		{"text spaces", text, "  ", `NOTES value of "  " is not an acceptable NULL value for applicable fields`},
		{"numeric sentinel", num, int64(-9999), ""},
		{"numeric required sentinel", num, int64(-8888), `FREEBOARD value of "-8888" is not an acceptable NULL value for applicable fields`},
		{"numeric null", num, nil, `FREEBOARD value of "NULL" is not an acceptable NULL value for applicable fields`},
		{"date sentinel", date, "9/9/9999", ""},
		{"date required sentinel", date, "8/8/8888", "PAL_DATE value of 8/8/8888 is not an acceptable NULL value for applicable fields"},
		{"date blank", date, " ", "PAL_DATE should not be NULL"},
		{"other type", core.Field{Name: "SHAPE"}, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applicableNull(tt.field, tt.value))
		})
	}
}

func TestCheckNulls_RequiredBeforeApplicable(t *testing.T) {
	desc := descriptor(t, "S_Levee", "2021")
	ds := core.NewDataset("S_Levee", []core.Field{
		{Name: "FREEBOARD", Type: core.FieldDecimal},
		{Name: "LEVEE_ID", Type: core.FieldText, MaxLength: 25},
		{Name: "OWNER", Type: core.FieldText, MaxLength: 100},
	}, [][]any{
		{-8888.0, "L1", nil},
		{-9999.0, "L2", "City"},
	})

	got := checkNulls(desc, tableContext(desc, ds))
	assert.Equal(t, []string{
		`L1 | OWNER value of "NULL" is not an acceptable NULL value for required fields`,
		`L1 | FREEBOARD value of "-8888" is not an acceptable NULL value for applicable fields`,
	}, lines(got))
}

func TestCheckDomains(t *testing.T) {
	desc := descriptor(t, "S_Levee", "2021")
	ds := core.NewDataset("S_Levee", []core.Field{
		{Name: "LEVEE_ID", Type: core.FieldText, MaxLength: 25},
		{Name: "LEVEE_STAT", Type: core.FieldText, MaxLength: 3},
		{Name: "DISTRICT", Type: core.FieldText, MaxLength: 4},
	}, [][]any{
		{"L1", "A", "1003"},
		{"L2", "Accredited", " "},
		{"L3", nil, nil},
		{"L4", "Z", "Baltimore"},
	})

	t.Run("coded", func(t *testing.T) {
		got := checkDomains(desc, tableContext(desc, ds))
		assert.Equal(t, []string{
			`L2 | LEVEE_STAT value of "Accredited" is not in domain`,
			`L3 | LEVEE_STAT value of "NULL" is not in domain`,
			`L4 | LEVEE_STAT value of "Z" is not in domain`,
			`L4 | DISTRICT value of "Baltimore" is not in domain`,
		}, lines(got))
	})

	t.Run("textual", func(t *testing.T) {
		tc := tableContext(desc, ds)
		tc.Mode = catalog.ModeTextual
		got := checkDomains(desc, tc)
		assert.Equal(t, []string{
			`L1 | LEVEE_STAT value of "A" is not in domain`,
			`L3 | LEVEE_STAT value of "NULL" is not in domain`,
			`L4 | LEVEE_STAT value of "Z" is not in domain`,
			`L1 | DISTRICT value of "1003" is not in domain`,
		}, lines(got))
	})
}

func TestCheckUniqueID(t *testing.T) {
	desc := descriptor(t, "S_XS", "2021")
	ds := core.NewDataset("S_XS", []core.Field{{Name: "XS_LN_ID", Type: core.FieldInteger}},
		[][]any{{1}, {2}, {2}, {3}, {3}, {3}})

	got := checkUniqueID(desc, tableContext(desc, ds))
	assert.Equal(t, []string{
		"2 | Duplicate unique id found in XS_LN_ID",
		"3 | Duplicate unique id found in XS_LN_ID",
	}, lines(got))

	blank := core.NewDataset("S_XS", []core.Field{{Name: "XS_LN_ID", Type: core.FieldInteger}},
		[][]any{{nil}, {1}, {nil}})
	assert.Equal(t, []string{"NULL | Duplicate unique id found in XS_LN_ID"},
		lines(checkUniqueID(desc, tableContext(desc, blank))))
}

func TestCheckHygiene(t *testing.T) {
	desc := descriptor(t, "S_Levee", "2021")
	ds := core.NewDataset("S_Levee", []core.Field{
		{Name: "LEVEE_ID", Type: core.FieldText, MaxLength: 25},
		{Name: "OWNER", Type: core.FieldText, MaxLength: 100},
		{Name: "LEVEE_NM", Type: core.FieldText, MaxLength: 100},
		{Name: "FREEBOARD", Type: core.FieldDecimal},
	}, [][]any{
		{" L1", "City ", " Big Levee", 2.0},
		{"L2", " ", "Levee", 3.0},
		{"L3", "x", nil, 4.0},
	})

	got := checkHygiene(desc, tableContext(desc, ds))
	assert.Equal(t, []string{
		"L1 | OWNER has an extra space.",
		"L1 | LEVEE_NM has an extra space.",
	}, lines(got))
}

func TestCheckDFIRMIDAndSourceCit(t *testing.T) {
	desc := descriptor(t, "S_Levee", "2021")
	ds := core.NewDataset("S_Levee", []core.Field{
		{Name: "LEVEE_ID", Type: core.FieldText},
		{Name: "DFIRM_ID", Type: core.FieldText},
		{Name: "SOURCE_CIT", Type: core.FieldText},
	}, [][]any{
		{"L1", "48001C", "STUDY1"},
		{"L2", "48999C", nil},
	})
	tc := tableContext(desc, ds)
	tc.DFIRMIDs = map[string]bool{"48001C": true}
	tc.Citations = map[string]bool{"STUDY1": true}

	assert.Equal(t, []string{
		`L2 | DFIRM_ID value of "48999C" does not match the DFIRM_ID value in S_Submittal_Info`,
	}, lines(checkDFIRMID(desc, tc)))
	assert.Equal(t, []string{
		`L2 | SOURCE_CIT value of "NULL" does not match any values in L_Source_Cit`,
	}, lines(checkSourceCit(desc, tc)))

	tc.DFIRMIDs = nil
	assert.Empty(t, checkDFIRMID(desc, tc))

	// Any DFIRM_ID of a multi-county submittal is accepted.
	tc.DFIRMIDs = map[string]bool{"48002C": true, "48999C": true}
	assert.Equal(t, []string{
		`L1 | DFIRM_ID value of "48001C" does not match the DFIRM_ID value in S_Submittal_Info`,
	}, lines(checkDFIRMID(desc, tc)))
}
