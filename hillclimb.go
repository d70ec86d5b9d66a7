package hillclimb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

//////
// Const, vars, types.
//////

// Controller drives the hill-climbing search. It evaluates the full space
// once, then repeatedly evaluates the neighbourhood of the current best point
// until the best point sits on the border of the space, stops moving, or the
// region scores uniformly.
//
// A single goroutine runs the state machine; evaluations of one region fan out
// on the WorkerPool and are joined before the next decision is taken.
//
// The ResultCache outlives individual runs: points already evaluated under a
// fold count are never evaluated again until Reset is called.
type Controller struct {
	cfg      SearchConfig
	ev       Evaluator
	space    *Space
	dims     []string
	ranking  Ranking
	cache    *ResultCache
	trace    *SearchTrace
	pool     *WorkerPool
	logger   logrus.FieldLogger
	recorder TraceRecorder

	mu      sync.Mutex
	state   State
	running bool
	cancel  context.CancelFunc
}

// Option customises a Controller.
type Option func(*Controller)

// WithCache makes the controller use cache, e.g. one pre-seeded with results
// of an earlier run.
func WithCache(cache *ResultCache) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRecorder persists every run through recorder.
func WithRecorder(recorder TraceRecorder) Option {
	return func(c *Controller) {
		c.recorder = recorder
	}
}

//////
// Exported functionalities.
//////

// NewController validates cfg and builds the full space.
//
// Returns:
// - *Controller: Ready to Run
// - error: A *ConfigError if cfg is invalid or the evaluator does not know the metric
func NewController(cfg SearchConfig, ev Evaluator, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if ev == nil {
		return nil, &ConfigError{Field: "Evaluator", Err: errors.New("evaluator is required")}
	}

	space, err := NewSpace(cfg.Dimensions...)
	if err != nil {
		return nil, &ConfigError{Field: "Dimensions", Err: err}
	}

	ranking, err := NewRanking(ev, cfg.Metric)
	if err != nil {
		return nil, &ConfigError{Field: "Metric", Err: err}
	}

	dims := make([]string, len(cfg.Dimensions))
	for i, d := range cfg.Dimensions {
		dims[i] = d.Name
	}

	c := &Controller{
		cfg:     cfg,
		ev:      ev,
		space:   space,
		dims:    dims,
		ranking: ranking,
		cache:   NewResultCache(),
		trace:   NewSearchTrace(),
		pool:    NewWorkerPool(cfg.Workers),
		logger:  discardLogger(),
		state:   StateInit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Space returns the full search space.
func (c *Controller) Space() *Space {
	return c.space
}

// Cache returns the result cache.
func (c *Controller) Cache() *ResultCache {
	return c.cache
}

// Trace returns the trace of the latest run.
func (c *Controller) Trace() *SearchTrace {
	return c.trace
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Stop asks a running search to stop. Outstanding evaluations are cancelled
// and Run returns an error wrapping ErrInterrupted.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
}

// Reset clears the cache and the trace, for a brand new search. It fails
// while a search is running.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("cannot reset: %w", ErrRunning)
	}

	c.cache.Clear()
	c.trace.Clear()
	c.state = StateInit

	return nil
}

// Close releases the worker pool. The controller cannot run afterwards.
func (c *Controller) Close() {
	c.pool.Close()
}

// Run searches for the best point using train as training data.
//
// How it works:
// 1. INIT: optionally draws a stratified sample of train for the initial pass
// 2. EVALUATE_INITIAL: evaluates every point of the full space at the initial
// fold count and picks the best
// 3. EVALUATE_SUBSEQUENT: while the best point is not on the border of the
// full space, evaluates its neighbourhood at the subsequent fold count on the
// full training data and moves to the best neighbour
// 4. DONE: returns the best Performance and the trace
//
// Any iteration-level error aborts the search: the best point of an aborted
// iteration is not trustworthy.
func (c *Controller) Run(ctx context.Context, train Dataset) (*Result, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()

		return nil, ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.state = StateInit
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}()

	runID := uuid.New().String()
	log := c.logger.WithField("run_id", runID)

	c.trace.Clear()

	initialTrain, err := c.prepare(train)
	if err != nil {
		log.WithError(err).Error("search configuration rejected")

		return nil, err
	}

	c.startRun(ctx, log, runID)

	result, err := c.climb(ctx, log, runID, train, initialTrain)
	if err != nil {
		log.WithError(err).Error("search aborted")
	} else {
		log.WithFields(logrus.Fields{
			"best":       result.Point().String(),
			"value":      result.Value,
			"iterations": result.Iterations,
			"reason":     result.Reason,
		}).Info("search finished")
	}

	c.finishRun(ctx, log, runID, result, err)

	return result, err
}

//////
// Helper functions.
//////

// prepare runs INIT: it checks the data partitions and draws the sample of
// the initial pass.
func (c *Controller) prepare(train Dataset) (Dataset, error) {
	if train == nil {
		return nil, &ConfigError{Field: "Train", Err: errors.New("training data is required")}
	}

	for _, test := range []struct {
		field string
		ds    Dataset
	}{
		{"InitialTestSet", c.cfg.InitialTestSet},
		{"SubsequentTestSet", c.cfg.SubsequentTestSet},
	} {
		if test.ds == nil {
			continue
		}

		if err := train.Header().Compatible(test.ds.Header()); err != nil {
			return nil, &ConfigError{Field: test.field, Err: fmt.Errorf("incompatible with training data: %w", err)}
		}
	}

	if c.cfg.InitialSampleSize >= 100 {
		return train, nil
	}

	sample, err := StratifiedSample(train, c.cfg.InitialSampleSize, NewRandomSource(c.cfg.Seed))
	if err != nil {
		return nil, &ConfigError{Field: "InitialSampleSize", Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"percent": c.cfg.InitialSampleSize,
		"from":    train.Len(),
		"to":      sample.Len(),
	}).Debug("sampled initial training data")

	return sample, nil
}

// climb runs EVALUATE_INITIAL and the EVALUATE_SUBSEQUENT loop.
func (c *Controller) climb(ctx context.Context, log logrus.FieldLogger, runID string, train, initialTrain Dataset) (*Result, error) {
	result := &Result{RunID: runID}

	c.setState(StateEvaluateInitial)

	best, uniform, err := c.iterate(ctx, log, runID, result, 0, region{
		space: c.space,
		folds: c.cfg.InitialFolds,
		train: initialTrain,
		test:  c.cfg.InitialTestSet,
	})
	if err != nil {
		return nil, err
	}

	if uniform {
		return c.done(result, best, StopUniform), nil
	}

	c.setState(StateEvaluateSubsequent)

	for iteration := 1; ; iteration++ {
		if c.cfg.MaxIterations > 0 && iteration > c.cfg.MaxIterations {
			return c.done(result, best, StopMaxIterations), nil
		}

		center := best.Point().Location()
		if c.space.IsOnBorder(center) {
			log.WithField("best", best.Point().String()).Info("best point on border of the space")

			return c.done(result, best, StopBorder), nil
		}

		neighbours, err := c.space.Subspace(center)
		if err != nil {
			return nil, &IterationError{Iteration: iteration, State: StateEvaluateSubsequent, Err: err}
		}

		newBest, uniform, err := c.iterate(ctx, log, runID, result, iteration, region{
			space: neighbours,
			folds: c.cfg.SubsequentFolds,
			train: train,
			test:  c.cfg.SubsequentTestSet,
		})
		if err != nil {
			return nil, err
		}

		result.Iterations = iteration

		if uniform {
			return c.done(result, newBest, StopUniform), nil
		}

		if newBest.Point().Equal(best.Point()) {
			return c.done(result, newBest, StopNoImprovement), nil
		}

		best = newBest
	}
}

// iterate evaluates one region, ranks it and records the accepted best. On a
// uniform region the returned best is the previous best's point when the
// region contains it.
func (c *Controller) iterate(ctx context.Context, log logrus.FieldLogger, runID string, result *Result, iteration int, r region) (Performance, bool, error) {
	state := c.State()

	rlog := log.WithFields(logrus.Fields{
		"iteration": iteration,
		"phase":     state.String(),
		"folds":     r.folds,
		"points":    r.space.Size(),
	})
	rlog.Debug("evaluating region")

	outcome, err := c.evaluateRegion(ctx, r)
	result.Failures = append(result.Failures, outcome.failures...)

	for _, f := range outcome.failures {
		rlog.WithError(f.Err).WithFields(logrus.Fields{
			"point":      f.Point.String(),
			"classifier": f.Identity,
		}).Warn("evaluation failed")
	}

	if err != nil {
		return Performance{}, false, &IterationError{Iteration: iteration, State: state, Failures: outcome.failures, Err: err}
	}

	best, err := c.ranking.Best(outcome.performances)
	if err != nil {
		return Performance{}, false, &IterationError{Iteration: iteration, State: state, Err: err}
	}

	uniform, err := c.ranking.Uniform(outcome.performances)
	if err != nil {
		return Performance{}, false, &IterationError{Iteration: iteration, State: state, Err: err}
	}

	if uniform && iteration > 0 {
		if last, ok := c.trace.Last(); ok {
			for _, perf := range outcome.performances {
				if perf.Point().Equal(last.Best.Point()) {
					best = perf

					break
				}
			}
		}
	}

	value, err := c.ranking.Value(best)
	if err != nil {
		return Performance{}, false, &IterationError{Iteration: iteration, State: state, Err: err}
	}

	step := TraceStep{
		Iteration:  iteration,
		State:      state,
		Folds:      r.folds,
		Best:       best,
		Value:      value,
		RegionSize: r.space.Size(),
		Evaluated:  outcome.evaluated,
		Cached:     outcome.cached,
		Failed:     len(outcome.failures),
	}
	c.trace.Add(step)

	if c.recorder != nil {
		if err := c.recorder.RecordStep(ctx, runID, step); err != nil {
			rlog.WithError(err).Warn("failed to record trace step")
		}
	}

	rlog.WithFields(logrus.Fields{
		"evaluated": outcome.evaluated,
		"cached":    outcome.cached,
		"failed":    len(outcome.failures),
		"best":      best.Point().String(),
		"value":     value,
		"uniform":   uniform,
	}).Info("region evaluated")

	c.sendProgress(ProgressUpdate{
		RunID:            runID,
		State:            state,
		Iteration:        iteration,
		Folds:            r.folds,
		RegionSize:       step.RegionSize,
		Evaluated:        step.Evaluated,
		Cached:           step.Cached,
		Failed:           step.Failed,
		CurrentBest:      best.Point(),
		CurrentBestValue: value,
	})

	return best, uniform, nil
}

// done moves to DONE and fills the result.
func (c *Controller) done(result *Result, best Performance, reason StopReason) *Result {
	c.setState(StateDone)

	result.Best = best
	result.Reason = reason
	result.Trace = c.trace.Steps()

	if last, ok := c.trace.Last(); ok && last.Best.Point().Equal(best.Point()) {
		result.Value = last.Value
	} else if v, err := c.ranking.Value(best); err == nil {
		result.Value = v
	}

	return result
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = s
}

// sendProgress sends update without blocking.
func (c *Controller) sendProgress(update ProgressUpdate) {
	if c.cfg.ProgressChan == nil {
		return
	}

	select {
	case c.cfg.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}

func (c *Controller) startRun(ctx context.Context, log logrus.FieldLogger, runID string) {
	log.WithFields(logrus.Fields{
		"metric":           c.cfg.Metric,
		"polarity":         c.ranking.Polarity.String(),
		"space":            c.space.String(),
		"size":             c.space.Size(),
		"initial_folds":    c.cfg.InitialFolds,
		"subsequent_folds": c.cfg.SubsequentFolds,
		"workers":          c.pool.Slots(),
	}).Info("search started")

	if c.recorder == nil {
		return
	}

	err := c.recorder.StartRun(ctx, RunInfo{
		ID:              runID,
		Metric:          c.cfg.Metric,
		Polarity:        c.ranking.Polarity,
		Dimensions:      c.dims,
		InitialFolds:    c.cfg.InitialFolds,
		SubsequentFolds: c.cfg.SubsequentFolds,
		Workers:         c.pool.Slots(),
		StartedAt:       time.Now(),
	})
	if err != nil {
		log.WithError(err).Warn("failed to record run start")
	}
}

func (c *Controller) finishRun(ctx context.Context, log logrus.FieldLogger, runID string, result *Result, runErr error) {
	if c.recorder == nil {
		return
	}

	// The run context may be cancelled already; the record must still land.
	if err := c.recorder.FinishRun(context.WithoutCancel(ctx), runID, result, runErr); err != nil {
		log.WithError(err).Warn("failed to record run end")
	}
}
