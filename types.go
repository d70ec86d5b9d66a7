package hillclimb

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is a phase of the hill-climbing state machine.
type State int

const (
	// StateInit prepares data and the full space.
	StateInit State = iota

	// StateEvaluateInitial evaluates the full space at the initial fold count.
	StateEvaluateInitial

	// StateEvaluateSubsequent evaluates neighbourhoods of the current best.
	StateEvaluateSubsequent

	// StateDone is reached once the search has stopped.
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateEvaluateInitial:
		return "EVALUATE_INITIAL"
	case StateEvaluateSubsequent:
		return "EVALUATE_SUBSEQUENT"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StopReason tells why a search terminated.
type StopReason string

const (
	// StopBorder means the best point touches the border of the full space.
	StopBorder StopReason = "border"

	// StopUniform means every point of the last region scored identically.
	StopUniform StopReason = "uniform"

	// StopNoImprovement means the best neighbour is the previous best itself.
	StopNoImprovement StopReason = "no_improvement"

	// StopMaxIterations means the iteration cap was reached.
	StopMaxIterations StopReason = "max_iterations"
)

// ProgressUpdate represents the current state of the search.
type ProgressUpdate struct {
	// RunID identifies the search run.
	RunID string

	// State is the phase that produced the update.
	State State

	// Iteration is 0 for the initial pass and counts refinement passes after.
	Iteration int

	// Folds is the fold count of the evaluated region.
	Folds int

	// RegionSize is the number of points in the evaluated region.
	RegionSize int

	// Evaluated, Cached and Failed split RegionSize by how each point was
	// resolved.
	Evaluated int
	Cached    int
	Failed    int

	// CurrentBest holds the best point found so far.
	CurrentBest Point

	// CurrentBestValue holds the metric value of CurrentBest.
	CurrentBestValue float64
}

// TraceRecorder persists a search as it progresses. Recording errors are
// logged and never abort the search.
type TraceRecorder interface {
	// StartRun is called once INIT has succeeded.
	StartRun(ctx context.Context, run RunInfo) error

	// RecordStep is called for every accepted best of an iteration.
	RecordStep(ctx context.Context, runID string, step TraceStep) error

	// FinishRun is called when the search returns. runErr is nil on success.
	FinishRun(ctx context.Context, runID string, result *Result, runErr error) error
}

// RunInfo describes a search run.
type RunInfo struct {
	ID              string
	Metric          string
	Polarity        Polarity
	Dimensions      []string
	InitialFolds    int
	SubsequentFolds int
	Workers         int
	StartedAt       time.Time
}

// Result is the outcome of a search.
type Result struct {
	// RunID identifies the run.
	RunID string

	// Best is the final best Performance.
	Best Performance

	// Value is the optimised metric value of Best.
	Value float64

	// Iterations counts the refinement passes performed after the initial
	// pass.
	Iterations int

	// Reason tells why the search stopped.
	Reason StopReason

	// Trace lists every accepted best, in order.
	Trace []TraceStep

	// Failures lists every failed evaluation, in order of occurrence.
	Failures []TaskFailure
}

// Point returns the best point.
func (r *Result) Point() Point {
	return r.Best.Point()
}

// Model returns the classifier or configuration built from the best point.
func (r *Result) Model() any {
	return r.Best.Model()
}

// SearchConfig holds all configuration parameters of a search.
//
// Usage example:
//
//	cfg := DefaultConfig()
//	cfg.Dimensions = []Dimension{
//	    ListDimension("degree", 1, 2, 3),
//	    ListDimension("gamma", 0.1, 0.2, 0.3),
//	}
//	cfg.Metric = MetricErrorRate
//	cfg.Workers = 4
//
// Recommended settings:
//   - InitialFolds: 2 (a cheap, coarse pass over the whole space)
//   - SubsequentFolds: 10 (a thorough pass over small neighbourhoods)
//   - InitialSampleSize: lower it for large training sets
//
// Note:
// - Create separate configs for parallel searches.
type SearchConfig struct {
	// Dimensions defines the full search space.
	Dimensions []Dimension

	// Metric is the id of the measurement to optimise. Its polarity comes from
	// the Evaluator.
	Metric string

	// InitialSampleSize is the percentage of training data used for the
	// initial pass. 100 disables sampling.
	InitialSampleSize float64

	// InitialFolds is the fold count of the initial pass. Below 2 means plain
	// train-set evaluation.
	InitialFolds int

	// SubsequentFolds is the fold count of every refinement pass. Below 2
	// means plain train-set evaluation.
	SubsequentFolds int

	// InitialTestSet, when set, replaces cross-validation in the initial pass.
	InitialTestSet Dataset

	// SubsequentTestSet, when set, replaces cross-validation in refinement
	// passes.
	SubsequentTestSet Dataset

	// Workers is the number of evaluations run in parallel. 1 is fully
	// sequential.
	Workers int

	// Seed drives sampling and is handed to every evaluation.
	Seed int64

	// MaxIterations caps refinement passes. 0 means no cap.
	MaxIterations int

	// ProgressChan is used to send progress updates during the search.
	// If nil, no updates will be sent.
	ProgressChan chan<- ProgressUpdate
}

// DefaultConfig returns a default configuration. Dimensions must still be set.
func DefaultConfig() SearchConfig {
	return SearchConfig{
		Metric:            MetricAccuracy,
		InitialSampleSize: 100,
		InitialFolds:      2,
		SubsequentFolds:   10,
		Workers:           1,
		Seed:              1,
		ProgressChan:      nil, // Default to no progress updates.
	}
}

// Validate checks the configuration. Any returned error is a *ConfigError.
func (c SearchConfig) Validate() error {
	if len(c.Dimensions) == 0 {
		return &ConfigError{Field: "Dimensions", Err: errors.New("at least one dimension is required")}
	}

	for _, d := range c.Dimensions {
		if err := d.Validate(); err != nil {
			return &ConfigError{Field: "Dimensions", Err: err}
		}
	}

	if c.Metric == "" {
		return &ConfigError{Field: "Metric", Err: errors.New("metric id is required")}
	}

	if c.InitialSampleSize <= 0 || c.InitialSampleSize > 100 {
		return &ConfigError{Field: "InitialSampleSize", Err: fmt.Errorf("%v is outside (0, 100]", c.InitialSampleSize)}
	}

	if c.Workers < 1 {
		return &ConfigError{Field: "Workers", Err: fmt.Errorf("%d is below 1", c.Workers)}
	}

	if c.MaxIterations < 0 {
		return &ConfigError{Field: "MaxIterations", Err: fmt.Errorf("%d is negative", c.MaxIterations)}
	}

	return nil
}
