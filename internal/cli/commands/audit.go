package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand() *cobra.Command {
	var schema string
	var strict bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Review the catalog's business rules",
		Long: `Audit the catalog rules for a schema year and list the ones that
deserve human review: rules whose fields the table does not define,
sentinel values compared in the wrong place, and similar slips.`,
		Example: `  # Audit the default schema
  dfirmqc audit

  # Fail when any issue is found
  dfirmqc audit --schema 2019 --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}
			if schema == "" {
				schema = cc.Schema()
			}
			issues, err := cc.Catalog.Audit(schema)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if err := r.JSON(issues); err != nil {
					return err
				}
			} else {
				r.Header(1, fmt.Sprintf("Catalog audit (schema %s)", schema))
				if len(issues) == 0 {
					r.Success("No issues found")
					return nil
				}
				rows := make([][]any, 0, len(issues))
				for _, is := range issues {
					rows = append(rows, []any{is.Table, is.Rule, is.Kind, is.Field, is.Message})
				}
				r.Table([]string{"Table", "Rule", "Kind", "Field", "Issue"}, rows)
			}

			if strict && len(issues) > 0 {
				return fmt.Errorf("audit found %d issues", len(issues))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Schema year (default: configured or catalog default)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit 1 when issues are found")

	return cmd
}
