// Package sqlite provides a SQLite and GeoPackage workspace adapter for
// dfirmqc, backed by the pure-Go modernc driver.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/t968rs/FEMA-Prod-updates/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
)

func init() {
	factory := func(logger *slog.Logger) adapter.Adapter { return New(logger) }
	adapter.Register("sqlite", factory)
	adapter.Register("gpkg", factory)
}
