package search

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
)

// QueueStrategy starts a fixed number of goroutines that pull single files
// from one queue until it drains. A worker's chunk is the set of files it
// pulled, so fast workers take over more of the list.
type QueueStrategy struct{}

func (QueueStrategy) Name() string { return StrategyQueue }

func (QueueStrategy) Description() string { return strategies[StrategyQueue].description }

func (QueueStrategy) Execute(ctx context.Context, job Job) ([]*PartialResult, error) {
	total := 0
	for _, c := range job.Chunks {
		total += len(c.Files)
	}
	workerCount := min(max(job.Workers, 1), total)
	if workerCount == 0 {
		return nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan FileRef)
	results := make(chan outcome, workerCount)
	done := make(chan struct{})

	go func() {
		defer close(queue)
		for _, c := range job.Chunks {
			for _, f := range c.Files {
				select {
				case queue <- f:
				case <-runCtx.Done():
					return
				}
			}
		}
	}()

	var wg conc.WaitGroup
	for id := range workerCount {
		wg.Go(func() {
			claimed := Chunk{ID: id}
			partial, err := runGuarded(func() (*PartialResult, error) {
				return drainQueue(runCtx, job, queue, &claimed)
			})
			results <- outcome{chunk: claimed, partial: partial, err: err}
		})
	}

	go func() {
		defer close(done)
		wg.Wait()
	}()

	return gather(ctx, runCtx, cancel, job, workerCount, results, done)
}

func drainQueue(ctx context.Context, job Job, queue <-chan FileRef, claimed *Chunk) (*PartialResult, error) {
	start := time.Now()
	partial := newPartialResult(claimed.ID, job.Keywords)

	for f := range queue {
		claimed.Files = append(claimed.Files, f)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := partial.scanFile(ctx, job, f); err != nil {
			return nil, err
		}
	}

	partial.Elapsed = time.Since(start)
	job.Logger.Debug().
		Int("worker", claimed.ID).
		Int("files", partial.Files).
		Dur("elapsed", partial.Elapsed).
		Msg("Queue worker drained")

	return partial, nil
}
