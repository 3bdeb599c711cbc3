package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the violation types the classifier can emit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tSEVERITY\tDESCRIPTION")
		for _, l := range taxonomy.Default().Labels() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Type, l.Severity, l.Desc)
		}
		return tw.Flush()
	},
}
