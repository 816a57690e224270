package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/pkg/rules"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Schema  string // Schema year to compile table rules for
	Scope   string // Filter kinds by scope: row, table
	Verbose bool   // Show the keys each kind reads
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [table]",
		Short: "List rule kinds or the compiled rules of a table",
		Long: `List the rule kinds the engine understands, or compile and list the
business rules of one catalog table for a schema year.

Row kinds evaluate each record on its own; table kinds look at whole
columns, possibly of other tables.`,
		Example: `  # List every rule kind
  dfirmqc rules

  # Only kinds that look across tables
  dfirmqc rules --scope table

  # Rules S_Levee runs under the 2019 schema
  dfirmqc rules S_Levee --schema 2019

  # Output as JSON
  dfirmqc rules -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return showTableRules(cc, args[0], opts)
			}
			return listKinds(cc.Renderer, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "Schema year (default: configured or catalog default)")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "Filter kinds by scope: row, table")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show the keys each kind reads")

	return cmd
}

func listKinds(r *output.Renderer, opts *RulesOptions) error {
	var kinds []rules.KindInfo
	for _, k := range rules.Kinds() {
		if opts.Scope != "" && string(k.Scope) != opts.Scope {
			continue
		}
		kinds = append(kinds, k)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(kinds)
	}

	r.Header(1, fmt.Sprintf("Rule kinds (%d)", len(kinds)))
	header := []string{"Kind", "Scope", "Description"}
	if opts.Verbose {
		header = append(header, "Keys")
	}
	rows := make([][]any, 0, len(kinds))
	for _, k := range kinds {
		row := []any{k.Name, string(k.Scope), k.Description}
		if opts.Verbose {
			row = append(row, strings.Join(k.Keys, ", "))
		}
		rows = append(rows, row)
	}
	r.Table(header, rows)
	r.Println("")
	r.Muted("Use 'dfirmqc rules <table>' to see a table's compiled rules")
	return nil
}

// compiledRule is the JSON form of a table rule.
type compiledRule struct {
	Index   int      `json:"index"`
	Kind    string   `json:"kind"`
	Fields  []string `json:"fields"`
	Message string   `json:"message"`
}

func showTableRules(cc *CommandContext, table string, opts *RulesOptions) error {
	schema := opts.Schema
	if schema == "" {
		schema = cc.Schema()
	}
	desc, err := cc.Catalog.Table(table, schema)
	if err != nil {
		return err
	}
	compiled, err := rules.Compile(desc)
	if err != nil {
		return err
	}

	out := make([]compiledRule, 0, len(compiled))
	for _, rule := range compiled {
		out = append(out, compiledRule{
			Index:   rule.Index(),
			Kind:    rule.Kind(),
			Fields:  rule.Fields(),
			Message: rule.Spec().Message,
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("%s rules (schema %s)", desc.Name, schema))
	if len(out) == 0 {
		r.Muted("No business rules")
		return nil
	}
	rows := make([][]any, 0, len(out))
	for _, c := range out {
		rows = append(rows, []any{c.Index, c.Kind, strings.Join(c.Fields, ", "), c.Message})
	}
	r.Table([]string{"#", "Kind", "Fields", "Message"}, rows)
	return nil
}
