package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kwscan/kwscan/search"
)

// workerCmd is started by the isolated strategy: one job on stdin, one reply
// on stdout. Logs go to stderr, which the parent quotes on failure.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Scan one chunk for the isolated strategy",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return search.ServeWorker(cmd.Context(), os.Stdin, os.Stdout, nil, logger)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
