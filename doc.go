// Package hillclimb provides hyperparameter search by cached hill-climbing over
// a discretised parameter lattice. It evaluates a coarse pass over the whole
// space, then repeatedly refines the neighbourhood of the best point until the
// search converges, and never evaluates the same point twice.
//
// # Features
//
// The package includes the following key features:
//
//   - Lattice search: every dimension is an ordered list of legal values, built
//     from explicit lists, linear ranges or logarithmic ranges
//   - Memoised evaluation: results are cached by (fold count, point), so
//     overlapping neighbourhoods cost nothing
//   - Bounded parallelism: the points of a region are evaluated on a worker
//     pool and joined before the next decision is taken
//   - Deterministic outcome: enumeration order is fixed and ranking does not
//     depend on completion order
//   - Failure tolerance: a failed evaluation only drops its own point
//   - Progress Monitoring: real-time updates via channels, structured logs and
//     an optional persistent trace
//
// # How the search works
//
//  1. INIT: the training data is optionally down-sampled (stratified) for the
//     coarse pass
//  2. EVALUATE_INITIAL: every point of the full space is evaluated at the
//     initial fold count
//  3. EVALUATE_SUBSEQUENT: while the best point is not on the border of the
//     full space, its neighbourhood is evaluated at the subsequent fold count
//     on the full training data
//  4. DONE: the search stops when the best point reaches the border, when the
//     best neighbour is the previous best itself, or when a region scores
//     uniformly
//
// # Usage
//
//	cfg := hillclimb.DefaultConfig()
//	cfg.Dimensions = []hillclimb.Dimension{
//	    hillclimb.ListDimension("degree", 1, 2, 3),
//	    gamma, // e.g. from hillclimb.LogDimension("gamma", 10, -3, 0, 1)
//	}
//	cfg.Metric = hillclimb.MetricAccuracy
//	cfg.Workers = 4
//
//	ev := &hillclimb.ClassifierEvaluator{
//	    Base:     "svm",
//	    Factory:  svmFactory,
//	    Validate: crossValidate,
//	}
//
//	ctrl, err := hillclimb.NewController(cfg, ev)
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	result, err := ctrl.Run(ctx, train)
//
// # Evaluators
//
// The search only depends on the Evaluator interface. ClassifierEvaluator
// adapts a ClassifierFactory and a Validator; the command sub-package runs an
// external program per point.
//
// # Thread Safety
//
// All shared components are safe for concurrent use:
//   - ResultCache, SearchTrace and MetricTable use RWMutex
//   - Point, Space and Performance are immutable
//   - RandomSource serialises access to its generator
//   - A Controller runs one search at a time; Stop may be called from any
//     goroutine
package hillclimb
