package core

import (
	"regexp"
	"strconv"
	"strings"
)

// FieldType is the semantic type of a field as far as the NULL conventions
// are concerned.
type FieldType int

// Semantic field types.
const (
	FieldOther FieldType = iota
	FieldText
	FieldInteger
	FieldDecimal
	FieldDate
)

// String returns the string representation of the field type.
func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldInteger:
		return "integer"
	case FieldDecimal:
		return "decimal"
	case FieldDate:
		return "date"
	default:
		return "other"
	}
}

// IsNumeric reports whether the type is Integer or Decimal.
func (t FieldType) IsNumeric() bool {
	return t == FieldInteger || t == FieldDecimal
}

// Classification partitions a table's live fields for the NULL checks.
type Classification int

// Field classifications.
const (
	Applicable Classification = iota
	Required
	Skipped
)

// String returns the string representation of the classification.
func (c Classification) String() string {
	switch c {
	case Required:
		return "required"
	case Skipped:
		return "skipped"
	default:
		return "applicable"
	}
}

// Field is a live field of a workspace table.
type Field struct {
	Name           string
	Type           FieldType
	MaxLength      int
	Classification Classification
}

// systemFields are never validated.
var systemFields = map[string]bool{
	"objectid":          true,
	"fid":               true,
	"shape":             true,
	"shape_length":      true,
	"shape_area":        true,
	"shape_leng":        true,
	"geom":              true,
	"geometry":          true,
	"gdb_geomattr_data": true,
}

// IsSystemField reports whether name is a row-id or geometry bookkeeping field.
func IsSystemField(name string) bool {
	return systemFields[strings.ToLower(name)]
}

var lengthPattern = regexp.MustCompile(`\((\d+)\)`)

// FieldFromColumn maps a database column onto a semantic field.
func FieldFromColumn(c Column) Field {
	f := Field{Name: c.Name, Type: ParseFieldType(c.Type), MaxLength: c.MaxLength}
	if f.MaxLength == 0 && f.Type == FieldText {
		if m := lengthPattern.FindStringSubmatch(c.Type); m != nil {
			f.MaxLength, _ = strconv.Atoi(m[1])
		}
	}
	return f
}

// ParseFieldType maps a native database type name onto a FieldType.
// It understands DuckDB, SQLite/GeoPackage and PostgreSQL spellings.
func ParseFieldType(native string) FieldType {
	t := strings.ToUpper(strings.TrimSpace(native))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "VARCHAR", "TEXT", "CHAR", "CHARACTER", "CHARACTER VARYING", "STRING",
		"NVARCHAR", "NCHAR", "BPCHAR", "UUID", "GUID":
		return FieldText
	case "INTEGER", "INT", "INT2", "INT4", "INT8", "BIGINT", "SMALLINT", "TINYINT",
		"MEDIUMINT", "HUGEINT", "UBIGINT", "UINTEGER", "USMALLINT", "UTINYINT", "SERIAL", "BIGSERIAL":
		return FieldInteger
	case "DOUBLE", "DOUBLE PRECISION", "FLOAT", "FLOAT4", "FLOAT8", "REAL", "DECIMAL", "NUMERIC":
		return FieldDecimal
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP WITHOUT TIME ZONE":
		return FieldDate
	default:
		return FieldOther
	}
}
