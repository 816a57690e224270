package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/report"
)

// InferTargetType guesses the adapter type from a workspace path or DSN.
func InferTargetType(workspace string) string {
	lower := strings.ToLower(workspace)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	switch filepath.Ext(lower) {
	case ".gpkg", ".sqlite", ".sqlite3", ".db":
		return "sqlite"
	}
	return "duckdb"
}

// ApplyTargetDefaults fills type-specific defaults.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)
	if t.Type == "postgres" {
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Schema == "" {
			t.Schema = "public"
		}
	}
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// Validate checks the settings that do not depend on a command.
func (c *Config) Validate() error {
	var errs []error
	if c.Target != nil {
		if err := c.Target.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("invalid target configuration: %w", err))
		}
	}
	if c.DomainMode != "" {
		if _, err := catalog.ParseMode(c.DomainMode); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range c.Output.Formats {
		if !slices.Contains(report.Formats(), strings.ToLower(strings.TrimSpace(f))) {
			errs = append(errs, fmt.Errorf("unknown report format %q", f))
		}
	}
	if _, err := output.ParseMode(c.OutputMode); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateWorkspace checks that a workspace is configured.
func (c *Config) ValidateWorkspace() error {
	if c.Target == nil || (c.Target.Path == "" && c.Target.Host == "" && c.Target.Database == "") {
		return fmt.Errorf("no workspace configured\nHint: set workspace in %s or pass --workspace", ConfigFileName)
	}
	return nil
}
