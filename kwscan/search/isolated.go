package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sourcegraph/conc/pool"

	internal "github.com/ZanzyTHEbar/kwscan/kwscan"
)

// maxStderrInError bounds how much of a failed worker's stderr is quoted in
// the WorkerFailure cause.
const maxStderrInError = 2048

// IsolatedStrategy runs every chunk in its own child process. The job goes to
// the child's stdin and the PartialResult comes back on its stdout, both as
// JSON. When the run fails the remaining children are killed.
type IsolatedStrategy struct {
	// Command starts a worker process; empty means this executable with the
	// "worker" argument.
	Command []string
	// Env is appended to the inherited environment of each child.
	Env []string
}

func (s *IsolatedStrategy) Name() string { return StrategyIsolated }

func (s *IsolatedStrategy) Description() string { return strategies[StrategyIsolated].description }

func (s *IsolatedStrategy) Execute(ctx context.Context, job Job) ([]*PartialResult, error) {
	command, err := s.command()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, len(job.Chunks))
	done := make(chan struct{})

	children := pool.New().WithMaxGoroutines(max(job.Workers, 1)).WithContext(runCtx)

	go func() {
		defer close(done)
		for _, chunk := range job.Chunks {
			if runCtx.Err() != nil {
				break
			}
			children.Go(func(ctx context.Context) error {
				partial, err := s.runChild(ctx, command, job, chunk)
				results <- outcome{chunk: chunk, partial: partial, err: err}
				return nil
			})
		}
		_ = children.Wait()
	}()

	return gather(ctx, runCtx, cancel, job, len(job.Chunks), results, done)
}

func (s *IsolatedStrategy) command() ([]string, error) {
	if len(s.Command) > 0 {
		return s.Command, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate worker executable: %w", err)
	}
	return []string{self, "worker"}, nil
}

func (s *IsolatedStrategy) runChild(ctx context.Context, command []string, job Job, chunk Chunk) (*PartialResult, error) {
	payload, err := json.Marshal(newWorkerJob(job.RunID, chunk, job.Keywords))
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Env = append(cmd.Env, internal.WorkerProcessEnv+"=1")
	cmd.Stdin = bytes.NewReader(payload)
	// bounds the wait for stdout when the worker left a descendant holding it
	cmd.WaitDelay = job.GracePeriod
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultGracePeriod
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	job.Logger.Debug().Int("chunk", chunk.ID).Int("files", len(chunk.Files)).Msg("Starting worker process")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("worker process: %w%s", err, stderrSuffix(stderr.String()))
	}

	var reply WorkerReply
	if err := json.Unmarshal(stdout.Bytes(), &reply); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", ErrProtocol, err)
	}

	return reply.partial(chunk, job.Keywords)
}

func stderrSuffix(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if len(stderr) > maxStderrInError {
		stderr = stderr[len(stderr)-maxStderrInError:]
	}
	return ": " + stderr
}
