package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the source types compiled into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := datasource.NewLoaderFactory(zap.NewNop()).ListTypes()
			if len(types) == 0 {
				return fmt.Errorf("no source types registered")
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range types {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Type, t.DisplayName, t.Description)
			}
			return tw.Flush()
		},
	}
}
