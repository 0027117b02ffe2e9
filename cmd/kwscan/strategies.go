package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kwscan/kwscan/search"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available concurrency strategies and partition policies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, info := range search.Strategies() {
			if _, err := fmt.Fprintf(out, "%-12s %s\n", info.Name, info.Description); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(out, "\npartition policies: %v\n", search.Policies())
		return err
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
