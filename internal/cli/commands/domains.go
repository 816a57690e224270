package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// NewDomainsCommand creates the domains command.
func NewDomainsCommand() *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "domains [name]",
		Short: "List domains or show a domain's codes",
		Long: `Without arguments, list the domain names and the schema years that
carry their own variant. With a name, print the domain's codes and labels.
Use --schema to see the variant a schema year resolves to.`,
		Example: `  # List every domain
  dfirmqc domains

  # Codes of the levee status domain as of 2017
  dfirmqc domains D_Levee_Status --schema 2017`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return listDomains(cc)
			}
			return showDomain(cc, args[0], schema)
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Show the variant used by this schema year")
	cmd.ValidArgsFunction = func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cat, err := catalog.Default()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return cat.DomainNames(), cobra.ShellCompDirectiveNoFileComp
	}

	return cmd
}

type domainInfo struct {
	Name     string         `json:"name"`
	Ref      string         `json:"ref,omitempty"`
	Variants []string       `json:"variants,omitempty"`
	Codes    []catalog.Code `json:"codes,omitempty"`
}

func listDomains(cc *CommandContext) error {
	names := cc.Catalog.DomainNames()
	infos := make([]domainInfo, 0, len(names))
	for _, name := range names {
		d, _ := cc.Catalog.Domain(name)
		infos = append(infos, domainInfo{
			Name:     name,
			Variants: cc.Catalog.DomainVariants(name),
			Codes:    d.Codes,
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, "Domains")
	rows := make([][]any, 0, len(infos))
	for _, d := range infos {
		rows = append(rows, []any{d.Name, len(d.Codes), strings.Join(d.Variants, ", ")})
	}
	r.Table([]string{"Domain", "Codes", "Variants"}, rows)
	return nil
}

func showDomain(cc *CommandContext, name, schema string) error {
	ref := resolveDomainRef(cc.Catalog, name, schema)
	d, ok := cc.Catalog.Domain(ref)
	if !ok {
		return fmt.Errorf("unknown domain %q", name)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(domainInfo{Name: d.Name, Ref: ref, Variants: cc.Catalog.DomainVariants(d.Name), Codes: d.Codes})
	}

	r.Header(1, ref)
	rows := make([][]any, 0, len(d.Codes))
	for _, c := range d.Codes {
		rows = append(rows, []any{c.Code, c.Label})
	}
	r.Table([]string{"Code", "Label"}, rows)
	return nil
}

// resolveDomainRef returns the domain reference catalog tables bind for
// a schema year: a NAME@YEAR variant when any table opts into one, else
// the base domain. A name that already carries a year is returned as is.
func resolveDomainRef(cat *catalog.Catalog, name, schema string) string {
	if schema == "" || strings.Contains(name, "@") || !cat.SupportsSchema(schema) {
		return name
	}
	for _, table := range cat.TableNames() {
		desc, err := cat.Table(table, schema)
		if err != nil {
			continue
		}
		for _, ref := range desc.DomainRefs {
			if base, _, ok := strings.Cut(ref, "@"); ok && base == name {
				return ref
			}
		}
	}
	return name
}
