// Package postgres provides a PostgreSQL workspace adapter for dfirmqc.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/t968rs/FEMA-Prod-updates/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
