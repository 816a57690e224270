// Package duckdb provides a DuckDB workspace adapter for dfirmqc.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/t968rs/FEMA-Prod-updates/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
