package core

import (
	"database/sql"
)

// AdapterConfig holds configuration for connecting to a workspace database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column represents a column in a workspace table.
type Column struct {
	Name      string
	Type      string // native type as reported by the database
	MaxLength int    // declared character length, 0 when unknown
	Nullable  bool
	Position  int
}

// TableMetadata holds metadata about a workspace table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Fields converts the table columns into semantic QC fields.
func (m *TableMetadata) Fields() []Field {
	fields := make([]Field, len(m.Columns))
	for i, c := range m.Columns {
		fields[i] = FieldFromColumn(c)
	}
	return fields
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
