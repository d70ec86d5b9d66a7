package hillclimb

import (
	"context"
	"errors"
	"fmt"
)

// Evaluation is the raw outcome of a Task: per-fold measurements and the
// trained model or configuration.
type Evaluation struct {
	// Measurements maps a metric id to one value per fold. A train-set
	// evaluation has a single value per metric.
	Measurements map[string][]float64

	// Model is the trained classifier or configuration, returned to the caller
	// with the best Performance.
	Model any
}

// TaskSetup carries everything needed to evaluate one point.
type TaskSetup struct {
	// Point is the candidate parameter setting.
	Point Point

	// Dimensions holds the dimension names, in Point order.
	Dimensions []string

	// Folds is the cross-validation fold count. Below 2 the classifier is
	// trained and evaluated on the training data.
	Folds int

	// Train is the training partition.
	Train Dataset

	// Test, when not nil, replaces cross-validation with a fixed test set.
	Test Dataset

	// Seed drives any randomness of the evaluation, e.g. fold assignment.
	Seed int64
}

// Task is one unit of evaluation work. Tasks run concurrently and must not
// share mutable state.
type Task interface {
	// Identity describes the configured classifier, used in failure reports.
	Identity() string

	// Run trains and evaluates. It should honour ctx cancellation.
	Run(ctx context.Context) (Evaluation, error)
}

// Evaluator is the capability set the search depends on. The search never
// sees concrete algorithm types.
type Evaluator interface {
	// NewTask prepares the evaluation of one point.
	NewTask(setup TaskSetup) (Task, error)

	// MetricValue reads the numeric value of metricID from a Performance.
	MetricValue(perf Performance, metricID string) (float64, error)

	// Polarity returns the static polarity of metricID.
	Polarity(metricID string) (Polarity, error)
}

// Classifier is an independently trainable, fully configured learning
// algorithm instance.
type Classifier interface {
	// Identity returns a human readable description, e.g. "svm -C 1 -G 0.1".
	Identity() string
}

// ClassifierFactory builds a fresh classifier from a base algorithm and the
// values of a Point. The mapping from dimension names to algorithm parameters
// belongs to the factory.
type ClassifierFactory interface {
	Configure(base string, dimensions []string, p Point) (Classifier, error)
}

// ValidationSetup describes how a classifier is scored.
type ValidationSetup struct {
	Folds int
	Train Dataset
	Test  Dataset
	Seed  int64
}

// Validator trains and scores a classifier, returning per-fold measurements.
type Validator func(ctx context.Context, clf Classifier, setup ValidationSetup) (map[string][]float64, error)

// ClassifierEvaluator is the Evaluator built from a ClassifierFactory and a
// Validator.
//
// Usage:
//
//	ev := &ClassifierEvaluator{
//	    Base:     "svm",
//	    Factory:  mySVMFactory,
//	    Validate: myCrossValidation,
//	}
type ClassifierEvaluator struct {
	// Base is the algorithm identity handed to the factory.
	Base string

	// Factory configures one classifier per task.
	Factory ClassifierFactory

	// Validate scores a configured classifier.
	Validate Validator

	// Metrics holds metric polarities. DefaultMetricTable is used when nil.
	Metrics *MetricTable
}

// NewTask implements Evaluator. Every task receives its own classifier
// instance, so concurrent training never shares model state.
func (e *ClassifierEvaluator) NewTask(setup TaskSetup) (Task, error) {
	if e.Factory == nil || e.Validate == nil {
		return nil, errors.New("classifier evaluator needs a factory and a validator")
	}

	clf, err := e.Factory.Configure(e.Base, setup.Dimensions, setup.Point)
	if err != nil {
		return nil, fmt.Errorf("configuring %s for %s: %w", e.Base, setup.Point, err)
	}

	return &classifierTask{clf: clf, validate: e.Validate, setup: setup}, nil
}

// MetricValue implements Evaluator.
func (e *ClassifierEvaluator) MetricValue(perf Performance, metricID string) (float64, error) {
	return MetricValue(perf, metricID)
}

// Polarity implements Evaluator.
func (e *ClassifierEvaluator) Polarity(metricID string) (Polarity, error) {
	metrics := e.Metrics
	if metrics == nil {
		metrics = DefaultMetricTable()
	}

	return metrics.Polarity(metricID)
}

type classifierTask struct {
	clf      Classifier
	validate Validator
	setup    TaskSetup
}

func (t *classifierTask) Identity() string {
	return t.clf.Identity()
}

func (t *classifierTask) Run(ctx context.Context) (Evaluation, error) {
	measurements, err := t.validate(ctx, t.clf, ValidationSetup{
		Folds: t.setup.Folds,
		Train: t.setup.Train,
		Test:  t.setup.Test,
		Seed:  t.setup.Seed,
	})
	if err != nil {
		return Evaluation{}, err
	}

	return Evaluation{Measurements: measurements, Model: t.clf}, nil
}

// MetricValue is the default way an Evaluator reads a metric: the mean of its
// per-fold values.
func MetricValue(perf Performance, metricID string) (float64, error) {
	v, ok := perf.Metric(metricID)
	if !ok {
		return 0, fmt.Errorf("metric %q not measured", metricID)
	}

	return v, nil
}
