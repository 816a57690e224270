package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display dfirmqc version, catalog version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dfirmqc v%s\n", version)
			if cat, err := catalog.Default(); err == nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "FIRM database catalog v%s (schemas %s-%s)\n",
					cat.Version, cat.Schemas[0], cat.Schemas[len(cat.Schemas)-1])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Built with %s\n", runtime.Version())
		},
	}
}
