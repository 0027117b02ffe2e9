package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/kwscan/kwscan/common"
	"github.com/ZanzyTHEbar/kwscan/kwscan/search"
)

func scanFixture(t *testing.T) (string, *search.AggregateResult) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.txt": "error warning",
		"b.txt": "ok",
		"c.txt": "line one\nwarning fatal",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	files := search.NewFileList([]string{
		filepath.Join(dir, "c.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "gone.txt"),
		filepath.Join(dir, "a.txt"),
	})
	keywords := search.NewKeywordSet([]string{"warning", "error", "fatal", "missing"}, true)

	result, err := search.Run(context.Background(), files, keywords, 2, search.SequentialStrategy{})
	require.NoError(t, err)
	return dir, result
}

func TestText(t *testing.T) {
	dir, result := scanFixture(t)
	a, c := filepath.Join(dir, "a.txt"), filepath.Join(dir, "c.txt")

	var buf bytes.Buffer
	require.NoError(t, Text(context.Background(), &buf, result, TextOptions{}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 6)
	assert.Equal(t, "warning: "+a+", "+c, string(lines[0]))
	assert.Equal(t, "error: "+a, string(lines[1]))
	assert.Equal(t, "fatal: "+c, string(lines[2]))
	assert.Equal(t, "missing: -", string(lines[3]))
	assert.Equal(t, "unreadable (1):", string(lines[4]))
	assert.Contains(t, string(lines[5]), "gone.txt")
}

func TestText_SortedDetailed(t *testing.T) {
	dir, result := scanFixture(t)
	c := filepath.Join(dir, "c.txt")

	var buf bytes.Buffer
	require.NoError(t, Text(context.Background(), &buf, result, TextOptions{SortKeywords: true, Detailed: true}))

	out := buf.String()
	assert.Contains(t, out, "fatal: "+c+"\n  "+c+":2\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("error:")), bytes.Index(buf.Bytes(), []byte("fatal:")))
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("missing:")), bytes.Index(buf.Bytes(), []byte("warning:")))
}

func TestText_DetailedSkipsFilesGoneSinceScan(t *testing.T) {
	dir, result := scanFixture(t)
	a, c := filepath.Join(dir, "a.txt"), filepath.Join(dir, "c.txt")
	require.NoError(t, os.Remove(a))

	var buf bytes.Buffer
	require.NoError(t, Text(context.Background(), &buf, result, TextOptions{Detailed: true}))

	out := buf.String()
	assert.Contains(t, out, "error: "+a+"\n")
	assert.NotContains(t, out, a+":")
	assert.Contains(t, out, "fatal: "+c+"\n  "+c+":2\n")
}

func TestText_DetailedCanceled(t *testing.T) {
	_, result := scanFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Text(ctx, &buf, result, TextOptions{Detailed: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSON(t *testing.T) {
	dir, result := scanFixture(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, result))

	var decoded struct {
		Keywords map[string][]string `json:"keywords"`
		Failures []struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "c.txt")}, decoded.Keywords["warning"])
	assert.Empty(t, decoded.Keywords["missing"])
	assert.Contains(t, decoded.Keywords, "missing")
	require.Len(t, decoded.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "gone.txt"), decoded.Failures[0].Path)
}

func TestSummary(t *testing.T) {
	metrics := common.NewRunMetrics()
	metrics.RecordRun(common.RunRecord{
		RunID:           "run-42",
		Strategy:        search.StrategyShared,
		Workers:         4,
		Chunks:          3,
		Files:           1200,
		Bytes:           2_500_000,
		Failures:        2,
		Duration:        1500 * time.Millisecond,
		WorkerDurations: []time.Duration{time.Second, time.Second},
		Success:         true,
	})

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, metrics.Summary()))

	out := buf.String()
	assert.Contains(t, out, "run-42 (ok)")
	assert.Contains(t, out, "shared, 4 workers, 3 chunks")
	assert.Contains(t, out, "1,200 scanned, 2.5 MB, 2 unreadable")
	assert.Contains(t, out, "elapsed   1.50s")
	assert.Contains(t, out, "mean 1.00s, stddev 0.00µs")
}
