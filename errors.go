package hillclimb

import (
	"errors"
	"fmt"
)

var (
	// ErrAllTasksFailed is returned when every evaluation of a region failed,
	// leaving no point to advance towards.
	ErrAllTasksFailed = errors.New("every evaluation of the region failed")

	// ErrCacheInconsistent is returned when a region is reported fully cached
	// but yields no Performance. It signals a logic bug.
	ErrCacheInconsistent = errors.New("region fully cached but no performance available")

	// ErrPoolClosed is returned when work is submitted to a closed pool.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrInterrupted is returned when a search or a batch of evaluations was
	// cancelled before completing.
	ErrInterrupted = errors.New("search interrupted")

	// ErrRunning is returned by Run and Reset while a search is in progress.
	ErrRunning = errors.New("search already running")
)

// ConfigError reports an invalid search configuration. The search does not
// start when one is returned.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TaskFailure records one failed evaluation. It never aborts sibling tasks.
type TaskFailure struct {
	Point    Point
	Folds    int
	Identity string
	Err      error
}

// Error implements error.
func (f TaskFailure) Error() string {
	return fmt.Sprintf("evaluating %s (folds=%d, %s): %v", f.Point, f.Folds, f.Identity, f.Err)
}

// Unwrap returns the underlying cause.
func (f TaskFailure) Unwrap() error {
	return f.Err
}

// IterationError aborts the search. It carries the phase, the iteration and
// the task failures collected before the abort.
type IterationError struct {
	Iteration int
	State     State
	Failures  []TaskFailure
	Err       error
}

// Error implements error.
func (e *IterationError) Error() string {
	msg := fmt.Sprintf("%s iteration %d: %v", e.State, e.Iteration, e.Err)
	if len(e.Failures) > 0 {
		msg += fmt.Sprintf(" (first failure: %v)", e.Failures[0])
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *IterationError) Unwrap() error {
	return e.Err
}
