package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
	"github.com/ZanzyTHEbar/kwscan/kwscan/search"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <path>...",
	Short: "Run every strategy and compare its result with the sequential one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyScanFlags(cmd)
		if err := appConfig.Validate(); err != nil {
			return err
		}

		files, keywords, err := loadInputs(cmd, args)
		if err != nil {
			return err
		}

		opts, err := appConfig.CoordinatorOptions(&logger, nil)
		if err != nil {
			return err
		}

		run := func(name string) (*search.AggregateResult, time.Duration, error) {
			strategy, err := search.NewStrategy(name, search.StrategyOptions{})
			if err != nil {
				return nil, 0, err
			}
			start := time.Now()
			result, err := search.NewCoordinator(strategy, opts).Run(cmd.Context(), files, keywords)
			return result, time.Since(start), err
		}

		reference, elapsed, err := run(search.StrategySequential)
		if err != nil {
			return fmt.Errorf("reference run: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-12s reference  %s\n", search.StrategySequential, common.FormatDuration(elapsed))

		failed := 0
		for _, info := range search.Strategies() {
			if info.Name == search.StrategySequential {
				continue
			}

			result, elapsed, err := run(info.Name)
			switch {
			case err != nil:
				failed++
				fmt.Fprintf(out, "%-12s FAILED     %v\n", info.Name, err)
			case !reference.Equal(result):
				failed++
				fmt.Fprintf(out, "%-12s FAILED     results differ from %s\n", info.Name, search.StrategySequential)
			default:
				fmt.Fprintf(out, "%-12s PASSED     %s\n", info.Name, common.FormatDuration(elapsed))
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d strategies disagree with %s", failed, search.StrategySequential)
		}
		return nil
	},
}

func init() {
	addInputFlags(verifyCmd)
	rootCmd.AddCommand(verifyCmd)
}
