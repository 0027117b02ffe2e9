package search

import "context"

// SequentialStrategy scans all chunks one after another without any
// concurrency. Its results are the reference the other strategies must match.
type SequentialStrategy struct{}

func (SequentialStrategy) Name() string { return StrategySequential }

func (SequentialStrategy) Description() string { return strategies[StrategySequential].description }

func (SequentialStrategy) Execute(ctx context.Context, job Job) ([]*PartialResult, error) {
	partials := make([]*PartialResult, 0, len(job.Chunks))

	for _, chunk := range job.Chunks {
		partial, err := runGuarded(func() (*PartialResult, error) {
			return scanChunk(ctx, job, chunk)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &WorkerFailure{ChunkID: chunk.ID, Files: chunk.Paths(), Cause: err}
		}
		partials = append(partials, partial)
	}

	return partials, nil
}
