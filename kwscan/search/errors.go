package search

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error classes a run can produce
var (
	// ErrUnreadable marks a per-file IOError; the run continues without the file
	ErrUnreadable = errors.New("file unreadable")
	// ErrNotRegular is the cause of an IOError on directories and devices
	ErrNotRegular = errors.New("not a regular file")

	// ErrWorkerFailed marks a WorkerFailure; the run is aborted
	ErrWorkerFailed = errors.New("worker failed")

	// ErrInvalidConfig marks a ConfigurationError
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrUnknownPolicy   = errors.New("unknown partition policy")

	// ErrProtocol is the cause of a WorkerFailure when an isolated worker's
	// reply does not match its job
	ErrProtocol = errors.New("worker protocol violation")
)

// IOError reports a file that is missing, unreadable, or not a regular file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrUnreadable, e.Err}
}

// WorkerFailure reports a worker that terminated abnormally. Files lists the
// paths of the chunk whose contribution is missing from the run.
type WorkerFailure struct {
	ChunkID int
	Files   []string
	Cause   error
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("worker for chunk %d failed, %d files not aggregated: %v", e.ChunkID, len(e.Files), e.Cause)
}

func (e *WorkerFailure) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrWorkerFailed}
	}
	return []error{ErrWorkerFailed, e.Cause}
}

// ConfigurationError reports invalid run parameters.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func newConfigError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidConfig}
	}
	return []error{ErrInvalidConfig, e.Err}
}
