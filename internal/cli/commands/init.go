package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/config"
	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	data := templateData{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new dfirmqc project",
		Long: `Initialize a dfirmqc project with a starter configuration.

This creates:
  - dfirmqc.yaml with every setting documented
  - .gitignore for reports and run history
  - .env.example for credentials`,
		Example: `  # Initialize in current directory
  dfirmqc init

  # Initialize for a workspace and task
  dfirmqc init --workspace study.gpkg --task "Hydraulics Data Capture"

  # Force overwrite existing config
  dfirmqc init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			mode := output.ModeAuto
			if cfg := config.GetCurrentConfig(); cfg != nil {
				mode = output.Mode(cfg.OutputMode)
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			return runInit(r, dir, data, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&data.Workspace, "workspace", "study.gpkg", "Workspace path to configure")
	cmd.Flags().StringVar(&data.Task, "task", "Draft FIRM Database Data Capture", "Workflow task to configure")
	cmd.Flags().StringVar(&data.Schema, "schema", "", "Schema year to configure (default: catalog default)")

	return cmd
}

func runInit(r *output.Renderer, dir string, data templateData, force bool) error {
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	if _, err := cat.Task(data.Task); err != nil {
		return err
	}
	if data.Schema == "" {
		data.Schema = cat.DefaultSchema
	}
	if !cat.SupportsSchema(data.Schema) {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownSchema, data.Schema)
	}

	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	files, err := copyTemplate("project", dir, data, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("dfirmqc project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point workspace at your FIRM database in " + config.ConfigFileName)
	r.Println("  2. Run 'dfirmqc doctor' to check the setup")
	r.Println("  3. Run 'dfirmqc check' to validate the delivery")

	return nil
}
