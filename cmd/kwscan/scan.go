package main

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
	"github.com/ZanzyTHEbar/kwscan/kwscan/corpus"
	"github.com/ZanzyTHEbar/kwscan/kwscan/report"
	"github.com/ZanzyTHEbar/kwscan/kwscan/search"
)

var (
	flagKeywords     []string
	flagKeywordsFile string
	flagWorkers      int
	flagStrategy     string
	flagPartition    string
	flagIgnoreCase   bool
	flagExtensions   []string
	flagIgnore       []string
	flagGracePeriod  time.Duration

	flagDetailed bool
	flagFormat   string
	flagSummary  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Report which files contain each keyword",
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

		strategy, err := search.NewStrategy(appConfig.Scan.Strategy, search.StrategyOptions{})
		if err != nil {
			return err
		}

		metrics := common.NewRunMetrics()
		opts, err := appConfig.CoordinatorOptions(&logger, metrics)
		if err != nil {
			return err
		}

		result, err := search.NewCoordinator(strategy, opts).Run(cmd.Context(), files, keywords)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch flagFormat {
		case "json":
			err = report.JSON(out, result)
		case "text":
			err = report.Text(cmd.Context(), out, result, report.TextOptions{Detailed: flagDetailed, Logger: &logger})
		default:
			return fmt.Errorf("unknown format %q (want text or json)", flagFormat)
		}
		if err != nil {
			return err
		}

		if flagSummary {
			return report.Summary(cmd.ErrOrStderr(), metrics.Summary())
		}
		return nil
	},
}

// addInputFlags registers the flags shared by scan and verify.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&flagKeywords, "keyword", "k", nil, "keyword to search for (repeatable)")
	cmd.Flags().StringVar(&flagKeywordsFile, "keywords-file", "", "file with whitespace-separated keywords")
	cmd.Flags().IntVarP(&flagWorkers, "workers", "w", runtime.NumCPU(), "number of workers")
	cmd.Flags().StringVar(&flagPartition, "partition", search.PolicyContiguous, "partition policy (contiguous or round-robin)")
	cmd.Flags().BoolVarP(&flagIgnoreCase, "ignore-case", "i", false, "match keywords case-insensitively")
	cmd.Flags().StringSliceVar(&flagExtensions, "ext", nil, "only scan files with these extensions when walking directories")
	cmd.Flags().StringSliceVar(&flagIgnore, "ignore", nil, "extra gitignore-style patterns to skip")
	cmd.Flags().DurationVar(&flagGracePeriod, "grace-period", search.DefaultGracePeriod, "how long a failed run waits for running workers")
}

// applyScanFlags overrides config values with explicitly set flags.
func applyScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		appConfig.Scan.Workers = flagWorkers
	}
	if flags.Changed("strategy") {
		appConfig.Scan.Strategy = flagStrategy
	}
	if flags.Changed("partition") {
		appConfig.Scan.Partition = flagPartition
	}
	if flags.Changed("ignore-case") {
		appConfig.Scan.CaseSensitive = !flagIgnoreCase
	}
	if flags.Changed("grace-period") {
		appConfig.Scan.GracePeriod = flagGracePeriod
	}
	if flags.Changed("keywords-file") {
		appConfig.Corpus.KeywordsFile = flagKeywordsFile
	}
	if flags.Changed("ext") {
		appConfig.Corpus.Extensions = flagExtensions
	}
}

// loadInputs builds the run's FileList and KeywordSet from flags, config and
// path arguments.
func loadInputs(cmd *cobra.Command, args []string) (search.FileList, search.KeywordSet, error) {
	var words []string
	for _, k := range flagKeywords {
		if k = strings.TrimSpace(k); k != "" {
			words = append(words, k)
		}
	}
	if appConfig.Corpus.KeywordsFile != "" {
		fromFile, err := corpus.LoadKeywords(appConfig.Corpus.KeywordsFile)
		if err != nil {
			return search.FileList{}, search.KeywordSet{}, err
		}
		words = append(words, fromFile...)
	}

	paths, err := corpus.ResolveFiles(cmd.Context(), args, corpus.Options{
		Ignore:         flagIgnore,
		IgnoreFileName: appConfig.Corpus.IgnoreFile,
		Extensions:     appConfig.Corpus.Extensions,
		Logger:         &logger,
	})
	if err != nil {
		return search.FileList{}, search.KeywordSet{}, err
	}

	logger.Debug().Int("files", len(paths)).Int("keywords", len(words)).Msg("Inputs loaded")
	return search.NewFileList(paths), search.NewKeywordSet(words, appConfig.Scan.CaseSensitive), nil
}

func init() {
	addInputFlags(scanCmd)
	scanCmd.Flags().StringVarP(&flagStrategy, "strategy", "s", search.StrategyShared, "concurrency strategy (see 'strategies')")
	scanCmd.Flags().BoolVar(&flagDetailed, "detailed", false, "print matching line numbers")
	scanCmd.Flags().StringVar(&flagFormat, "format", "text", "output format (text or json)")
	scanCmd.Flags().BoolVar(&flagSummary, "summary", false, "print run statistics to stderr")
	rootCmd.AddCommand(scanCmd)
}
