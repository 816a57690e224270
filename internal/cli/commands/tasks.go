package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
)

// NewTasksCommand creates the tasks command.
func NewTasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List workflow tasks",
		Long: `List the workflow tasks and the tables each one delivers.

Production tasks also run the checks that only apply to final
deliveries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}
			r := cc.Renderer
			tasks := cc.Catalog.Tasks()
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(tasks)
			}

			r.Header(1, "Workflow tasks")
			rows := make([][]any, 0, len(tasks))
			for _, t := range tasks {
				tables := strings.Join(t.Tables, ", ")
				if t.AllTables {
					tables = "(all tables)"
				}
				production := ""
				if t.Production {
					production = "yes"
				}
				rows = append(rows, []any{t.Name, production, tables})
			}
			r.Table([]string{"Task", "Production", "Tables"}, rows)
			return nil
		},
	}
}
