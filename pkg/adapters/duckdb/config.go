package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "spatial", "sqlite")
	Extensions []string `mapstructure:"extensions"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`

	// ReadOnly opens the workspace without write access. Report tables
	// cannot be written back in this mode.
	ReadOnly bool `mapstructure:"read_only"`
}

// ParseParams decodes the adapter's free-form params block.
func ParseParams(raw map[string]any) (Params, error) {
	var p Params
	if len(raw) == 0 {
		return p, nil
	}
	if err := mapstructure.Decode(raw, &p); err != nil {
		return p, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}
