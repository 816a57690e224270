package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// TablesOptions holds options for the tables command.
type TablesOptions struct {
	Task   string // Only tables of this task
	Schema string // Schema year to resolve descriptors for
}

// tableInfo is one row of the tables listing.
type tableInfo struct {
	Name     string   `json:"name"`
	ID       string   `json:"id,omitempty"`
	Required []string `json:"required"`
	Fields   []string `json:"fields,omitempty"`
	Domains  int      `json:"domains"`
	Rules    int      `json:"rules"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &TablesOptions{}
	cmd := &cobra.Command{
		Use:   "tables [table]",
		Short: "List catalog tables",
		Long: `List the tables the catalog describes for a schema year, or show the
fields, domains and rules of one table.`,
		Example: `  # List every catalog table
  dfirmqc tables

  # Tables delivered by a task
  dfirmqc tables --task "Hydraulics Data Capture"

  # Show one table as it looked in 2018
  dfirmqc tables S_Levee --schema 2018`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}
			schema := opts.Schema
			if schema == "" {
				schema = cc.Schema()
			}
			if len(args) == 1 {
				return showTable(cc, args[0], schema)
			}
			return listTables(cc, opts.Task, schema)
		},
	}

	cmd.Flags().StringVar(&opts.Task, "task", "", "Only list the tables of this task")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "Schema year (default: configured or catalog default)")

	return cmd
}

func listTables(cc *CommandContext, task, schema string) error {
	names := cc.Catalog.TableNames()
	if task != "" {
		var err error
		if names, err = cc.Catalog.TablesForTask(task); err != nil {
			return err
		}
	}

	infos := make([]tableInfo, 0, len(names))
	for _, name := range names {
		desc, err := cc.Catalog.Table(name, schema)
		if err != nil {
			return err
		}
		infos = append(infos, describeTable(desc))
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	title := fmt.Sprintf("Catalog tables (schema %s)", schema)
	if task != "" {
		title = fmt.Sprintf("%s tables (schema %s)", task, schema)
	}
	r.Header(1, title)
	rows := make([][]any, 0, len(infos))
	for _, t := range infos {
		rows = append(rows, []any{t.Name, t.ID, len(t.Required), t.Domains, t.Rules})
	}
	r.Table([]string{"Table", "ID", "Required", "Domains", "Rules"}, rows)
	return nil
}

func showTable(cc *CommandContext, name, schema string) error {
	desc, err := cc.Catalog.Table(name, schema)
	if err != nil {
		return err
	}
	info := describeTable(desc)

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			tableInfo
			DomainRefs map[string]string  `json:"domain_refs"`
			RuleSpecs  []catalog.RuleSpec `json:"rule_specs"`
		}{info, desc.DomainRefs, desc.Rules})
	}

	r.Header(1, fmt.Sprintf("%s (schema %s)", desc.Name, schema))
	if desc.ID != "" {
		r.Println(output.FormatKeyValue("ID field", desc.ID))
	}
	r.Println(output.FormatKeyValue("Required", strings.Join(desc.Required, ", ")))
	if len(desc.Fields) > 0 {
		r.Println(output.FormatKeyValue("Optional", strings.Join(desc.Fields, ", ")))
	}

	if fields := desc.DomainFields(); len(fields) > 0 {
		r.Println("")
		r.Header(2, "Domains")
		rows := make([][]any, 0, len(fields))
		for _, f := range fields {
			rows = append(rows, []any{f, desc.DomainRefs[f]})
		}
		r.Table([]string{"Field", "Domain"}, rows)
	}

	if len(desc.Rules) > 0 {
		r.Println("")
		r.Header(2, "Rules")
		for i, spec := range desc.Rules {
			r.Printf("%d. %s %s\n", i+1, spec.Kind, spec.Message)
		}
	}
	return nil
}

func describeTable(desc *catalog.Descriptor) tableInfo {
	return tableInfo{
		Name:     desc.Name,
		ID:       desc.ID,
		Required: desc.Required,
		Fields:   desc.Fields,
		Domains:  len(desc.DomainRefs),
		Rules:    len(desc.Rules),
	}
}
