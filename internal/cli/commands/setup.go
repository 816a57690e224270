package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/config"
	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/internal/state"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Renderer  *output.Renderer
	Catalog   *catalog.Catalog
	Workspace adapter.Adapter
}

// NewCommandContext creates a CommandContext with an open workspace.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutWorkspace(cmd)
	if err != nil {
		return nil, nil, err
	}
	ws, err := openWorkspace(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Workspace = ws

	cleanup := func() {
		_ = ws.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutWorkspace creates a CommandContext without a
// workspace. Useful for commands that only read the catalog.
func NewCommandContextWithoutWorkspace(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputMode)),
		Catalog:  cat,
	}, nil
}

// Schema returns the configured schema year or the catalog default.
func (cc *CommandContext) Schema() string {
	if cc.Cfg.SchemaYear != "" {
		return cc.Cfg.SchemaYear
	}
	return cc.Catalog.DefaultSchema
}

// Helper functions shared across commands

// getConfig returns the current configuration, loading it from the
// working directory when no command has loaded it yet.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

func openWorkspace(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
	if err := cfg.ValidateWorkspace(); err != nil {
		return nil, err
	}
	ws, err := adapter.Open(ctx, cfg.Target.AdapterConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace %s: %w", workspaceName(cfg), err)
	}
	return ws, nil
}

// workspaceName describes the workspace for messages and run history.
func workspaceName(cfg *config.Config) string {
	t := cfg.Target
	switch {
	case t == nil:
		return ""
	case t.Path != "":
		return t.Path
	case t.Host != "":
		return fmt.Sprintf("%s://%s:%d/%s", t.Type, t.Host, t.Port, t.Database)
	default:
		return t.Database
	}
}

func openState(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return state.Open(ctx, cfg.StatePath, logger)
}
