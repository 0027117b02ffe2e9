package search

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// SharedStrategy runs one goroutine per chunk, at most job.Workers at a time.
// Each goroutine builds a private PartialResult and sends it over a buffered
// channel; nothing else is shared between workers.
type SharedStrategy struct{}

func (SharedStrategy) Name() string { return StrategyShared }

func (SharedStrategy) Description() string { return strategies[StrategyShared].description }

func (SharedStrategy) Execute(ctx context.Context, job Job) ([]*PartialResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, len(job.Chunks))
	done := make(chan struct{})

	workers := pool.New().WithMaxGoroutines(max(job.Workers, 1)).WithContext(runCtx)

	go func() {
		defer close(done)
		for _, chunk := range job.Chunks {
			if runCtx.Err() != nil {
				break
			}
			workers.Go(func(ctx context.Context) error {
				partial, err := runGuarded(func() (*PartialResult, error) {
					return scanChunk(ctx, job, chunk)
				})
				results <- outcome{chunk: chunk, partial: partial, err: err}
				return nil
			})
		}
		_ = workers.Wait()
	}()

	return gather(ctx, runCtx, cancel, job, len(job.Chunks), results, done)
}
