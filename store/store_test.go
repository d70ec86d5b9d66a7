package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/hillclimb"
)

func openStore(t *testing.T) (*TraceStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runs.db")

	ts, err := Open(context.Background(), path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = ts.Close() })

	return ts, path
}

func step(iteration int, state hillclimb.State, folds int, location []int, values []float64, value float64) hillclimb.TraceStep {
	p := hillclimb.NewPoint(values, location)

	return hillclimb.TraceStep{
		Iteration:  iteration,
		State:      state,
		Folds:      folds,
		Best:       hillclimb.NewPerformance(p, folds, map[string][]float64{hillclimb.MetricAccuracy: {value}}, nil, 0),
		Value:      value,
		RegionSize: 9,
		Evaluated:  9 - iteration,
		Cached:     iteration,
	}
}

func TestTraceStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	ts, _ := openStore(t)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, ts.StartRun(ctx, hillclimb.RunInfo{
		ID:              "run-1",
		Metric:          hillclimb.MetricErrorRate,
		Polarity:        hillclimb.LowerIsBetter,
		Dimensions:      []string{"degree", "gamma"},
		InitialFolds:    2,
		SubsequentFolds: 10,
		Workers:         4,
		StartedAt:       started,
	}))

	run, err := ts.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)

	first := step(0, hillclimb.StateEvaluateInitial, 2, []int{1, 1}, []float64{2, 0.2}, 0.3)
	second := step(1, hillclimb.StateEvaluateSubsequent, 10, []int{1, 1}, []float64{2, 0.2}, 0.25)

	require.NoError(t, ts.RecordStep(ctx, "run-1", first))
	require.NoError(t, ts.RecordStep(ctx, "run-1", second))

	result := &hillclimb.Result{
		RunID:      "run-1",
		Best:       second.Best,
		Value:      0.25,
		Iterations: 1,
		Reason:     hillclimb.StopNoImprovement,
		Failures:   []hillclimb.TaskFailure{{Err: errors.New("boom")}},
	}

	require.NoError(t, ts.FinishRun(ctx, "run-1", result, nil))

	run, err = ts.GetRun(ctx, "run-1")
	require.NoError(t, err)

	completed := run.CompletedAt
	require.NotNil(t, completed)
	run.CompletedAt = nil

	want := RunRecord{
		RunID:           "run-1",
		Metric:          hillclimb.MetricErrorRate,
		Polarity:        "lower_is_better",
		Dimensions:      []string{"degree", "gamma"},
		InitialFolds:    2,
		SubsequentFolds: 10,
		Workers:         4,
		Status:          StatusComplete,
		BestPoint:       []float64{2, 0.2},
		BestValue:       0.25,
		Iterations:      1,
		StopReason:      "no_improvement",
		Failures:        1,
		StartedAt:       started,
	}

	if diff := cmp.Diff(want, run); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	steps, err := ts.ListSteps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, StepRecord{
		Step:       1,
		Iteration:  1,
		State:      "EVALUATE_SUBSEQUENT",
		Folds:      10,
		Point:      []float64{2, 0.2},
		Location:   []int{1, 1},
		Value:      0.25,
		RegionSize: 9,
		Evaluated:  8,
		Cached:     1,
	}, steps[1])
	assert.Equal(t, 0, steps[0].Step)
}

func TestTraceStoreFailedRun(t *testing.T) {
	ctx := context.Background()
	ts, _ := openStore(t)

	require.NoError(t, ts.StartRun(ctx, hillclimb.RunInfo{ID: "run-2", Metric: "accuracy", StartedAt: time.Now()}))
	require.NoError(t, ts.FinishRun(ctx, "run-2", nil, hillclimb.ErrAllTasksFailed))

	run, err := ts.GetRun(ctx, "run-2")
	require.NoError(t, err)

	assert.Equal(t, StatusError, run.Status)
	assert.Equal(t, hillclimb.ErrAllTasksFailed.Error(), run.Error)
	assert.Nil(t, run.BestPoint)
}

func TestTraceStoreNotFound(t *testing.T) {
	ctx := context.Background()
	ts, _ := openStore(t)

	_, err := ts.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = ts.FinishRun(ctx, "missing", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	// Steps need their run.
	err = ts.RecordStep(ctx, "missing", step(0, hillclimb.StateEvaluateInitial, 2, []int{0}, []float64{1}, 0.5))
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts, path := openStore(t)

	require.NoError(t, ts.StartRun(ctx, hillclimb.RunInfo{ID: "run-3", Metric: "accuracy", StartedAt: time.Now()}))
	require.NoError(t, ts.Close())

	again, err := Open(ctx, path)
	require.NoError(t, err)
	defer again.Close()

	runs, err := again.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-3", runs[0].RunID)

	_, err = Open(ctx, "")
	assert.Error(t, err)
}

type constFactory struct{}

type constClassifier struct{ p hillclimb.Point }

func (c constClassifier) Identity() string { return "const " + c.p.String() }

func (constFactory) Configure(_ string, _ []string, p hillclimb.Point) (hillclimb.Classifier, error) {
	return constClassifier{p: p}, nil
}

func TestTraceStoreRecordsController(t *testing.T) {
	ctx := context.Background()
	ts, _ := openStore(t)

	ev := &hillclimb.ClassifierEvaluator{
		Base:    "const",
		Factory: constFactory{},
		Validate: func(_ context.Context, clf hillclimb.Classifier, _ hillclimb.ValidationSetup) (map[string][]float64, error) {
			k := clf.(constClassifier).p.Index(0)

			return map[string][]float64{hillclimb.MetricAccuracy: {1 - 0.1*float64((k-2)*(k-2))}}, nil
		},
	}

	cfg := hillclimb.DefaultConfig()
	cfg.Dimensions = []hillclimb.Dimension{hillclimb.ListDimension("k", 0, 1, 2, 3, 4)}

	ctrl, err := hillclimb.NewController(cfg, ev, hillclimb.WithRecorder(ts))
	require.NoError(t, err)
	defer ctrl.Close()

	train, err := hillclimb.NewTable(hillclimb.Header{Attributes: []string{"x", "class"}, ClassIndex: 1}, [][]string{{"1", "a"}})
	require.NoError(t, err)

	result, err := ctrl.Run(ctx, train)
	require.NoError(t, err)

	run, err := ts.GetRun(ctx, result.RunID)
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, run.Status)
	assert.Equal(t, []float64{2}, run.BestPoint)
	assert.Equal(t, string(hillclimb.StopNoImprovement), run.StopReason)
	assert.Equal(t, []string{"k"}, run.Dimensions)

	steps, err := ts.ListSteps(ctx, result.RunID)
	require.NoError(t, err)
	assert.Len(t, steps, len(result.Trace))
}
