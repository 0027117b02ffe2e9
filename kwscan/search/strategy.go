package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

// Strategy names accepted by NewStrategy
const (
	StrategySequential = "sequential"
	StrategyShared     = "shared"
	StrategyIsolated   = "isolated"
	StrategyQueue      = "queue"
)

// Strategy executes the chunks of one run and returns one PartialResult per
// worker. Implementations differ only in how workers are run.
type Strategy interface {
	Name() string
	Description() string
	Execute(ctx context.Context, job Job) ([]*PartialResult, error)
}

// Job is everything a strategy needs to run the workers of one run.
// Keywords, Files and Chunks are read-only for the duration of the run.
type Job struct {
	RunID       string
	Keywords    KeywordSet
	Files       FileList
	Chunks      []Chunk
	Workers     int
	Scanner     Scanner
	GracePeriod time.Duration
	Logger      zerolog.Logger
}

// StrategyOptions configures strategies that need more than a Job.
type StrategyOptions struct {
	// WorkerCommand is the program and arguments that start an isolated
	// worker process. Empty means this executable with the "worker" argument.
	WorkerCommand []string
	// WorkerEnv is appended to the environment of isolated worker processes.
	WorkerEnv []string
}

type strategyEntry struct {
	description string
	build       func(StrategyOptions) Strategy
}

var strategies = map[string]strategyEntry{
	StrategySequential: {
		description: "scans every chunk in order on the calling goroutine; the reference for the others",
		build:       func(StrategyOptions) Strategy { return SequentialStrategy{} },
	},
	StrategyShared: {
		description: "one goroutine per chunk in a bounded pool, partial results handed over a channel",
		build:       func(StrategyOptions) Strategy { return SharedStrategy{} },
	},
	StrategyIsolated: {
		description: "one child process per chunk, jobs and partial results exchanged as JSON over pipes",
		build: func(o StrategyOptions) Strategy {
			return &IsolatedStrategy{Command: o.WorkerCommand, Env: o.WorkerEnv}
		},
	},
	StrategyQueue: {
		description: "a fixed set of goroutines pulling single files from a shared queue",
		build:       func(StrategyOptions) Strategy { return QueueStrategy{} },
	},
}

// NewStrategy builds the strategy registered under name.
func NewStrategy(name string, opts StrategyOptions) (Strategy, error) {
	entry, ok := strategies[name]
	if !ok {
		return nil, &ConfigurationError{Field: "strategy", Reason: fmt.Sprintf("%q", name), Err: ErrUnknownStrategy}
	}
	return entry.build(opts), nil
}

// StrategyInfo names and describes a registered strategy.
type StrategyInfo struct {
	Name        string
	Description string
}

// Strategies lists the registered strategies ordered by name.
func Strategies() []StrategyInfo {
	infos := make([]StrategyInfo, 0, len(strategies))
	for name, entry := range strategies {
		infos = append(infos, StrategyInfo{Name: name, Description: entry.description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// scanChunk runs the job's scanner over every file of chunk. IOErrors are
// recorded on the partial result; any other scanner error aborts the chunk.
func scanChunk(ctx context.Context, job Job, chunk Chunk) (*PartialResult, error) {
	start := time.Now()
	partial := newPartialResult(chunk.ID, job.Keywords)

	for _, f := range chunk.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := partial.scanFile(ctx, job, f); err != nil {
			return nil, err
		}
	}

	partial.Elapsed = time.Since(start)
	job.Logger.Debug().
		Int("chunk", chunk.ID).
		Int("files", partial.Files).
		Int("failures", len(partial.Failures)).
		Dur("elapsed", partial.Elapsed).
		Msg("Chunk scanned")

	return partial, nil
}

func (p *PartialResult) scanFile(ctx context.Context, job Job, f FileRef) error {
	match, err := job.Scanner.Scan(ctx, f.Path, job.Keywords)
	if err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			p.Failures = append(p.Failures, FileFailure{ID: f.ID, Path: f.Path, Err: err})
			job.Logger.Warn().Str("path", f.Path).Err(err).Msg("Skipping unreadable file")
			return nil
		}
		return fmt.Errorf("scan %s: %w", f.Path, err)
	}

	p.Files++
	p.Bytes += match.Size
	for _, k := range match.Keywords {
		p.Matches.Add(k, f.ID)
	}
	return nil
}

// outcome is what a worker hands back: a partial result, or the error that
// ended it together with the files it was responsible for.
type outcome struct {
	chunk   Chunk
	partial *PartialResult
	err     error
}

// runGuarded runs fn and converts a panic into an error.
func runGuarded(fn func() (*PartialResult, error)) (partial *PartialResult, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		partial, err = fn()
	})
	if r := pc.Recovered(); r != nil {
		return nil, r.AsError()
	}
	return partial, err
}

func isCancellation(runCtx context.Context, err error) bool {
	return runCtx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// gather receives worker outcomes until done is closed. The first real
// failure cancels the run; gather then waits at most grace for the remaining
// workers before returning the failure. A canceled parent context is reported
// the same way once its workers have stopped or grace expires.
func gather(ctx, runCtx context.Context, cancel context.CancelFunc, job Job, expected int, results <-chan outcome, done <-chan struct{}) ([]*PartialResult, error) {
	partials := make([]*PartialResult, 0, expected)
	var failure *WorkerFailure
	var grace <-chan time.Time
	stopping := runCtx.Done()

	handle := func(o outcome) {
		if o.err == nil {
			partials = append(partials, o.partial)
			return
		}
		if failure != nil || isCancellation(runCtx, o.err) {
			return
		}
		failure = &WorkerFailure{ChunkID: o.chunk.ID, Files: o.chunk.Paths(), Cause: o.err}
		job.Logger.Error().
			Int("chunk", o.chunk.ID).
			Int("files", len(o.chunk.Files)).
			Err(o.err).
			Msg("Worker failed, aborting run")
		cancel()
	}

	finish := func() ([]*PartialResult, error) {
		switch {
		case failure != nil:
			return nil, failure
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case len(partials) != expected:
			return nil, fmt.Errorf("%w: received %d of %d partial results", ErrWorkerFailed, len(partials), expected)
		}
		return partials, nil
	}

	for {
		select {
		case o := <-results:
			handle(o)
		case <-done:
			for {
				select {
				case o := <-results:
					handle(o)
				default:
					return finish()
				}
			}
		case <-stopping:
			stopping = nil
			timer := time.NewTimer(job.GracePeriod)
			defer timer.Stop()
			grace = timer.C
		case <-grace:
			job.Logger.Warn().Dur("grace_period", job.GracePeriod).Msg("Stopped waiting for workers")
			for {
				select {
				case o := <-results:
					handle(o)
				default:
					if failure == nil && ctx.Err() == nil {
						return nil, fmt.Errorf("%w: workers did not stop within %s", ErrWorkerFailed, job.GracePeriod)
					}
					return finish()
				}
			}
		}
	}
}
