package core

import "strings"

// Dataset is an in-memory copy of one table: its live fields and every
// row projected onto them, in field order. Datasets are read-only once
// built and may be shared between goroutines.
type Dataset struct {
	Name   string
	Fields []Field
	Rows   [][]any

	index map[string]int
}

// NewDataset builds a Dataset. Field lookup is case-insensitive.
func NewDataset(name string, fields []Field, rows [][]any) *Dataset {
	d := &Dataset{Name: name, Fields: fields, Rows: rows, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		d.index[strings.ToUpper(f.Name)] = i
	}
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Index returns the column position of field, or -1.
func (d *Dataset) Index(field string) int {
	if d == nil {
		return -1
	}
	if i, ok := d.index[strings.ToUpper(field)]; ok {
		return i
	}
	return -1
}

// Has reports whether the table has field.
func (d *Dataset) Has(field string) bool {
	return d.Index(field) >= 0
}

// Field returns the metadata of field.
func (d *Dataset) Field(name string) (Field, bool) {
	i := d.Index(name)
	if i < 0 {
		return Field{}, false
	}
	return d.Fields[i], true
}

// Column returns every value of field in row order, or nil when the
// field does not exist.
func (d *Dataset) Column(field string) []any {
	i := d.Index(field)
	if i < 0 {
		return nil
	}
	out := make([]any, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[i]
	}
	return out
}

// Value returns the value of field in row r; NULL when the field is absent.
func (d *Dataset) Value(r int, field string) any {
	i := d.Index(field)
	if i < 0 {
		return nil
	}
	return d.Rows[r][i]
}

// Distinct returns the distinct text values of field in first-seen order,
// NULLs excluded.
func (d *Dataset) Distinct(field string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range d.Column(field) {
		if v == nil {
			continue
		}
		s := Text(v)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
