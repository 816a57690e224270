package adapter

import (
	"fmt"
	"strings"
)

// Dialect captures the SQL spelling differences between back ends.
type Dialect struct {
	Name          string
	DefaultSchema string
	// Positional selects $1, $2 placeholders instead of ?.
	Positional bool
}

// FormatPlaceholder returns the i-th (1-based) bind placeholder.
func (d Dialect) FormatPlaceholder(i int) string {
	if d.Positional {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// QuoteIdent quotes an identifier with double quotes.
func (d Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName quotes schema.table, or just table when schema is empty.
func (d Dialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses the dialect's default schema if not specified.
func (d Dialect) ParseQualifiedName(table string) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}
