package common

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// BaseMetrics provides common fields used across different metrics types
type BaseMetrics struct {
	TotalOperations int64
	SuccessfulOps   int64
	FailedOps       int64
	LastOperation   time.Time
	Mu              sync.RWMutex
}

// updateBaseMetrics updates common metrics fields; caller holds Mu
func (bm *BaseMetrics) updateBaseMetrics(success bool) {
	bm.TotalOperations++
	if success {
		bm.SuccessfulOps++
	} else {
		bm.FailedOps++
	}
	bm.LastOperation = time.Now()
}

// baseMetrics returns the common metrics as a map; caller holds Mu
func (bm *BaseMetrics) baseMetrics() map[string]any {
	return map[string]any{
		"total_operations": bm.TotalOperations,
		"successful_ops":   bm.SuccessfulOps,
		"failed_ops":       bm.FailedOps,
		"last_operation":   bm.LastOperation,
	}
}

// RunRecord describes one finished coordinator run
type RunRecord struct {
	RunID           string
	Strategy        string
	Workers         int
	Chunks          int
	Files           int
	Bytes           int64
	Failures        int
	Duration        time.Duration
	WorkerDurations []time.Duration
	Success         bool
}

// RunMetrics accumulates counters across runs and keeps the last run's record
type RunMetrics struct {
	BaseMetrics
	FilesScanned int64
	BytesScanned int64
	FileFailures int64
	last         RunRecord
}

// NewRunMetrics creates an empty metrics collector
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{}
}

// RecordRun folds one run into the counters
func (rm *RunMetrics) RecordRun(rec RunRecord) {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	rm.updateBaseMetrics(rec.Success)
	if rec.Success {
		rm.FilesScanned += int64(rec.Files)
		rm.BytesScanned += rec.Bytes
		rm.FileFailures += int64(rec.Failures)
	}

	rec.WorkerDurations = append([]time.Duration(nil), rec.WorkerDurations...)
	rm.last = rec
}

// GetMetrics returns run metrics as a map
func (rm *RunMetrics) GetMetrics() map[string]any {
	rm.Mu.RLock()
	defer rm.Mu.RUnlock()

	metrics := rm.baseMetrics()
	metrics["files_scanned"] = rm.FilesScanned
	metrics["bytes_scanned"] = rm.BytesScanned
	metrics["file_failures"] = rm.FileFailures
	metrics["last_run_id"] = rm.last.RunID
	metrics["last_strategy"] = rm.last.Strategy
	metrics["last_duration"] = rm.last.Duration
	return metrics
}

// RunSummary is the last run's record plus worker timing statistics
type RunSummary struct {
	RunRecord
	WorkerMean   time.Duration
	WorkerStdDev time.Duration
}

// Summary returns the last recorded run with mean and standard deviation of
// its per-worker durations.
func (rm *RunMetrics) Summary() RunSummary {
	rm.Mu.RLock()
	defer rm.Mu.RUnlock()

	summary := RunSummary{RunRecord: rm.last}
	if len(rm.last.WorkerDurations) == 0 {
		return summary
	}

	samples := make([]float64, len(rm.last.WorkerDurations))
	for i, d := range rm.last.WorkerDurations {
		samples[i] = float64(d)
	}

	mean, std := stat.MeanStdDev(samples, nil)
	if len(samples) < 2 || math.IsNaN(std) {
		std = 0
	}
	summary.WorkerMean = time.Duration(mean)
	summary.WorkerStdDev = time.Duration(std)
	return summary
}

// FormatDuration formats a duration for human-readable display
func FormatDuration(duration time.Duration) string {
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%.2fµs", float64(duration.Nanoseconds())/1000)
	case duration < time.Second:
		return fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1000000)
	case duration < time.Minute:
		return fmt.Sprintf("%.2fs", duration.Seconds())
	case duration < time.Hour:
		return fmt.Sprintf("%.2fm", duration.Minutes())
	default:
		return fmt.Sprintf("%.2fh", duration.Hours())
	}
}
