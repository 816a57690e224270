package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
)

// importedTable is the JSON form of one loaded CSV.
type importedTable struct {
	Table string `json:"table"`
	File  string `json:"file"`
	Rows  int64  `json:"rows"`
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "import <file.csv>...",
		Short: "Load CSV exports into the workspace",
		Long: `Load CSV files into workspace tables. Each file goes into the table
named after it (S_Levee.csv loads S_Levee) unless --table is given for a
single file. Missing tables are created with text columns named after
the CSV header; existing tables receive the rows.`,
		Example: `  # Load two exported tables
  dfirmqc import exports/S_Levee.csv exports/L_Source_Cit.csv

  # Load a file under another table name
  dfirmqc import levee_fix.csv --table S_Levee`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if table != "" && len(args) > 1 {
				return fmt.Errorf("--table needs exactly one file, got %d", len(args))
			}
			return runImport(cmd, args, table)
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Target table for a single file")
	return cmd
}

func runImport(cmd *cobra.Command, files []string, table string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	loaded := make([]importedTable, 0, len(files))
	for _, file := range files {
		name := table
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		if !cc.Catalog.HasTable(name) {
			cc.Renderer.Warning(name + " is not a catalog table; it will be skipped by check")
		}
		if err := cc.Workspace.LoadCSV(ctx, name, file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
		n, err := cc.Workspace.RowCount(ctx, name)
		if err != nil {
			return err
		}
		cc.Logger.Debug("loaded csv", "table", name, "file", file, "rows", n)
		loaded = append(loaded, importedTable{Table: name, File: file, Rows: n})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(loaded)
	}
	r.Header(2, "Imported tables")
	for _, t := range loaded {
		r.StatusLine(t.Table, "success", fmt.Sprintf("%s (%d rows)", t.File, t.Rows))
	}
	r.Println("")
	r.Muted("Workspace: " + workspaceName(cc.Cfg))
	return nil
}
