package search

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategies_ExampleScenario(t *testing.T) {
	dir, paths := writeCorpus(t, map[string]string{
		"a.txt": "error warning",
		"b.txt": "ok",
		"c.txt": "warning fatal",
	})
	files := NewFileList(paths)
	keywords := NewKeywordSet([]string{"error", "warning", "fatal", "missing"}, true)
	a, c := filepath.Join(dir, "a.txt"), filepath.Join(dir, "c.txt")

	for _, strategy := range allStrategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			result, err := Run(context.Background(), files, keywords, 2, strategy)
			require.NoError(t, err)

			assert.Equal(t, map[string][]string{
				"error":   {a},
				"warning": {a, c},
				"fatal":   {c},
				"missing": {},
			}, result.Map())
			assert.Empty(t, result.Failures())
		})
	}
}

func TestStrategies_MatchSequential(t *testing.T) {
	corpus := make(map[string]string)
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for i := range 23 {
		content := fmt.Sprintf("file %d\n", i)
		for j, w := range words {
			if (i+j)%(j+2) == 0 {
				content += w + "\n"
			}
		}
		corpus[fmt.Sprintf("dir%d/f%02d.log", i%3, i)] = content
	}
	_, paths := writeCorpus(t, corpus)
	files := NewFileList(paths)
	keywords := NewKeywordSet(append(words, "zeta"), true)

	for _, policy := range Policies() {
		partition, err := PartitionerByName(policy)
		require.NoError(t, err)

		reference, err := SequentialStrategy{}.Execute(context.Background(), testJob(t, files, keywords, 1, partition))
		require.NoError(t, err)
		expected := Merge(keywords, files, reference)

		for _, workers := range []int{1, 2, 3, 8} {
			for _, strategy := range allStrategies() {
				t.Run(fmt.Sprintf("%s/%s/workers=%d", policy, strategy.Name(), workers), func(t *testing.T) {
					partials, err := strategy.Execute(context.Background(), testJob(t, files, keywords, workers, partition))
					require.NoError(t, err)

					got := Merge(keywords, files, partials)
					assert.True(t, expected.Equal(got), "expected %v, got %v", expected.Map(), got.Map())
				})
			}
		}
	}
}

func sortedMap(r *AggregateResult) map[string][]string {
	m := r.Map()
	for _, files := range m {
		sort.Strings(files)
	}
	return m
}

func TestStrategies_FileOrderInvariance(t *testing.T) {
	corpus := make(map[string]string)
	for i := range 9 {
		corpus[fmt.Sprintf("f%d.txt", i)] = fmt.Sprintf("k%d k%d", i%3, i%4)
	}
	_, paths := writeCorpus(t, corpus)
	keywords := NewKeywordSet([]string{"k0", "k1", "k2", "k3", "k9"}, true)

	expected, err := Run(context.Background(), NewFileList(paths), keywords, 1, SequentialStrategy{})
	require.NoError(t, err)

	reversed := slices.Clone(paths)
	slices.Reverse(reversed)
	rotated := append(slices.Clone(paths[4:]), paths[:4]...)

	for _, strategy := range allStrategies() {
		for i, order := range [][]string{reversed, rotated} {
			t.Run(fmt.Sprintf("%s/%d", strategy.Name(), i), func(t *testing.T) {
				got, err := Run(context.Background(), NewFileList(order), keywords, 4, strategy)
				require.NoError(t, err)
				assert.Equal(t, sortedMap(expected), sortedMap(got))
			})
		}
	}
}

func TestStrategies_BackslashFileName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("backslash is a separator on windows")
	}
	_, paths := writeCorpus(t, map[string]string{"d/f.txt": "alpha", `d\f.txt`: "beta"})
	files := NewFileList(paths)
	require.Equal(t, 2, files.Len())

	for _, strategy := range allStrategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			result, err := Run(context.Background(), files, NewKeywordSet([]string{"alpha", "beta"}, true), 2, strategy)
			require.NoError(t, err)
			assert.Equal(t, []string{paths[0]}, result.Files("alpha"))
			assert.Equal(t, []string{paths[1]}, result.Files("beta"))
		})
	}
}

func TestStrategies_FaultyFileIsolation(t *testing.T) {
	dir, paths := writeCorpus(t, map[string]string{
		"a.txt": "needle",
		"c.txt": "needle and hay",
	})
	missing := filepath.Join(dir, "b.txt")
	files := NewFileList([]string{paths[0], missing, dir, paths[1]})
	keywords := NewKeywordSet([]string{"needle", "hay"}, true)

	for _, strategy := range allStrategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			result, err := Run(context.Background(), files, keywords, 2, strategy)
			require.NoError(t, err)

			assert.Equal(t, []string{paths[0], paths[1]}, result.Files("needle"))
			assert.Equal(t, []string{paths[1]}, result.Files("hay"))

			failures := result.Failures()
			require.Len(t, failures, 2)
			assert.Equal(t, missing, failures[0].Path)
			assert.ErrorIs(t, failures[0].Err, ErrUnreadable)
			assert.Equal(t, dir, failures[1].Path)
		})
	}
}

func TestStrategies_WorkerFault(t *testing.T) {
	_, paths := writeCorpus(t, map[string]string{
		"a.txt": "x", "b.txt": "x", "c.txt": "x", "d.txt": "x",
	})
	files := NewFileList(paths)
	keywords := NewKeywordSet([]string{"x"}, true)

	scanners := map[string]Scanner{
		"error": errScanner{fail: map[string]bool{paths[2]: true}, err: errors.New("decoder state corrupted")},
		"panic": panicScanner{path: paths[2]},
	}

	for name, scanner := range scanners {
		for _, strategy := range []Strategy{SequentialStrategy{}, SharedStrategy{}, QueueStrategy{}} {
			t.Run(name+"/"+strategy.Name(), func(t *testing.T) {
				job := testJob(t, files, keywords, 2, Partition)
				job.Scanner = scanner

				partials, err := strategy.Execute(context.Background(), job)
				require.Error(t, err)
				assert.Nil(t, partials)

				var failure *WorkerFailure
				require.True(t, errors.As(err, &failure))
				assert.ErrorIs(t, err, ErrWorkerFailed)
				assert.Contains(t, failure.Files, paths[2])
				if strategy.Name() != StrategyQueue {
					assert.Equal(t, 1, failure.ChunkID)
					assert.Equal(t, []string{paths[2], paths[3]}, failure.Files)
				}
			})
		}
	}
}

func TestIsolatedStrategy_WorkerCrash(t *testing.T) {
	_, paths := writeCorpus(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	files := NewFileList(paths)
	keywords := NewKeywordSet([]string{"x"}, true)

	_, err := Run(context.Background(), files, keywords, 2, testIsolated(crashWorkerEnv+"=1"))
	require.Error(t, err)

	var failure *WorkerFailure
	require.True(t, errors.As(err, &failure))
	assert.Len(t, failure.Files, 1)
	assert.Contains(t, err.Error(), "worker crashed on purpose")
}

func TestIsolatedStrategy_KillsRunningWorkersOnFailure(t *testing.T) {
	_, paths := writeCorpus(t, map[string]string{"a.txt": "x", "b.txt": "x"})

	coordinator := NewCoordinator(testIsolated(hangWorkerEnv+"=1"), Options{
		Workers:     2,
		GracePeriod: 30 * time.Second,
	})

	start := time.Now()
	_, err := coordinator.Run(context.Background(), NewFileList(paths), NewKeywordSet([]string{"x"}, true))
	elapsed := time.Since(start)

	var failure *WorkerFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 0, failure.ChunkID)
	assert.Contains(t, err.Error(), "first chunk crashed")
	assert.Less(t, elapsed, 10*time.Second)
}

func TestIsolatedStrategy_DescendantHoldingStdout(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh available")
	}
	_, paths := writeCorpus(t, map[string]string{"a.txt": "x"})

	strategy := &IsolatedStrategy{Command: []string{sh, "-c", "sleep 5 & exit 3"}}
	coordinator := NewCoordinator(strategy, Options{Workers: 1, GracePeriod: 100 * time.Millisecond})

	start := time.Now()
	_, err = coordinator.Run(context.Background(), NewFileList(paths), NewKeywordSet([]string{"x"}, true))
	elapsed := time.Since(start)

	var failure *WorkerFailure
	require.True(t, errors.As(err, &failure))
	assert.Less(t, elapsed, 4*time.Second)
}

func TestIsolatedStrategy_MissingExecutable(t *testing.T) {
	_, paths := writeCorpus(t, map[string]string{"a.txt": "x"})
	strategy := &IsolatedStrategy{Command: []string{filepath.Join(t.TempDir(), "no-such-worker")}}

	_, err := Run(context.Background(), NewFileList(paths), NewKeywordSet([]string{"x"}, true), 1, strategy)
	assert.ErrorIs(t, err, ErrWorkerFailed)
}

func TestSharedStrategy_GracePeriod(t *testing.T) {
	_, paths := writeCorpus(t, map[string]string{"a.txt": "x", "b.txt": "x"})
	files := NewFileList(paths)
	scanner := &stuckScanner{path: paths[1], failPath: paths[0], release: make(chan struct{})}
	t.Cleanup(scanner.unblock)

	job := testJob(t, files, NewKeywordSet([]string{"x"}, true), 2, Partition)
	job.Scanner = scanner
	job.GracePeriod = 50 * time.Millisecond

	start := time.Now()
	_, err := SharedStrategy{}.Execute(context.Background(), job)
	elapsed := time.Since(start)

	var failure *WorkerFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 0, failure.ChunkID)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestStrategies_Canceled(t *testing.T) {
	_, paths := writeCorpus(t, map[string]string{"a.txt": "x", "b.txt": "x", "c.txt": "x"})
	files := NewFileList(paths)
	keywords := NewKeywordSet([]string{"x"}, true)

	for _, strategy := range allStrategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result, err := Run(ctx, files, keywords, 2, strategy)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestNewStrategy(t *testing.T) {
	for _, info := range Strategies() {
		s, err := NewStrategy(info.Name, StrategyOptions{})
		require.NoError(t, err)
		assert.Equal(t, info.Name, s.Name())
		assert.Equal(t, info.Description, s.Description())
	}

	_, err := NewStrategy("forked", StrategyOptions{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "strategy", cfgErr.Field)

	s, err := NewStrategy(StrategyIsolated, StrategyOptions{WorkerCommand: []string{"kw", "worker"}, WorkerEnv: []string{"A=1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"kw", "worker"}, s.(*IsolatedStrategy).Command)
	assert.Equal(t, []string{"A=1"}, s.(*IsolatedStrategy).Env)
}
