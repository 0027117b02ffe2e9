package search

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
)

// DefaultGracePeriod is how long a failed run waits for in-flight workers.
const DefaultGracePeriod = 2 * time.Second

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	Workers     int
	Partitioner Partitioner
	Scanner     Scanner
	GracePeriod time.Duration

	// AllowEmptyKeywords and AllowEmptyFiles turn an empty keyword set or
	// file list into a valid run instead of a ConfigurationError.
	AllowEmptyKeywords bool
	AllowEmptyFiles    bool

	Logger  *zerolog.Logger
	Metrics *common.RunMetrics
}

// Coordinator partitions a run, hands the chunks to its strategy and merges
// the partial results.
type Coordinator struct {
	strategy Strategy
	opts     Options
	logger   zerolog.Logger
}

// NewCoordinator creates a coordinator running strategy with opts.
func NewCoordinator(strategy Strategy, opts Options) *Coordinator {
	if opts.Partitioner == nil {
		opts.Partitioner = Partition
	}
	if opts.Scanner == nil {
		opts.Scanner = NewFileScanner()
	}
	if opts.GracePeriod == 0 {
		opts.GracePeriod = DefaultGracePeriod
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Coordinator{strategy: strategy, opts: opts, logger: logger}
}

// Strategy returns the strategy the coordinator runs.
func (c *Coordinator) Strategy() Strategy { return c.strategy }

// Run scans files for keywords and returns the merged result. It blocks
// until every dispatched worker has reported, or fails with a WorkerFailure
// when one of them terminates abnormally. No partial result is returned on
// failure.
func (c *Coordinator) Run(ctx context.Context, files FileList, keywords KeywordSet) (*AggregateResult, error) {
	if err := c.validate(files, keywords); err != nil {
		return nil, err
	}

	chunks, err := c.opts.Partitioner(files, c.opts.Workers)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := c.logger.With().Str("run_id", runID).Str("strategy", c.strategy.Name()).Logger()

	logger.Info().
		Int("files", files.Len()).
		Int("keywords", keywords.Len()).
		Int("workers", c.opts.Workers).
		Int("chunks", len(chunks)).
		Msg("Starting run")

	start := time.Now()

	var partials []*PartialResult
	if len(chunks) > 0 {
		partials, err = c.strategy.Execute(ctx, Job{
			RunID:       runID,
			Keywords:    keywords,
			Files:       files,
			Chunks:      chunks,
			Workers:     c.opts.Workers,
			Scanner:     c.opts.Scanner,
			GracePeriod: c.opts.GracePeriod,
			Logger:      logger,
		})
	}

	elapsed := time.Since(start)
	record := common.RunRecord{
		RunID:    runID,
		Strategy: c.strategy.Name(),
		Workers:  c.opts.Workers,
		Chunks:   len(chunks),
		Files:    files.Len(),
		Duration: elapsed,
	}

	if err != nil {
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("Run failed")
		c.record(record)
		return nil, err
	}

	result := Merge(keywords, files, partials)

	record.Success = true
	record.Failures = len(result.Failures())
	for _, p := range partials {
		record.Bytes += p.Bytes
		record.WorkerDurations = append(record.WorkerDurations, p.Elapsed)
	}
	c.record(record)

	logger.Info().
		Int("failures", record.Failures).
		Int64("bytes", record.Bytes).
		Dur("elapsed", elapsed).
		Msg("Run completed")

	return result, nil
}

func (c *Coordinator) validate(files FileList, keywords KeywordSet) error {
	switch {
	case c.strategy == nil:
		return newConfigError("strategy", "no strategy selected")
	case c.opts.Workers < 1:
		return newConfigError("workers", "must be >= 1")
	case c.opts.GracePeriod < 0:
		return newConfigError("gracePeriod", "must not be negative")
	case keywords.Len() == 0 && !c.opts.AllowEmptyKeywords:
		return newConfigError("keywords", "keyword list is empty")
	case files.Len() == 0 && !c.opts.AllowEmptyFiles:
		return newConfigError("files", "file list is empty")
	}
	return nil
}

func (c *Coordinator) record(rec common.RunRecord) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordRun(rec)
	}
}

// Run is a convenience wrapper that scans files for keywords with
// workerCount workers using strategy and default options.
func Run(ctx context.Context, files FileList, keywords KeywordSet, workerCount int, strategy Strategy) (*AggregateResult, error) {
	return NewCoordinator(strategy, Options{Workers: workerCount}).Run(ctx, files, keywords)
}
