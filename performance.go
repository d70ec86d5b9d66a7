package hillclimb

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Performance is the scored outcome of evaluating one Point under one fold
// configuration. It is created once per distinct (folds, point) pair and only
// read afterwards.
//
// Measurements are kept per fold, so the aggregate value of a metric is the
// mean over folds. A plain train-set evaluation has exactly one value per
// metric.
type Performance struct {
	point        Point
	folds        int
	measurements map[string][]float64
	model        any
	duration     time.Duration
}

// NewPerformance creates a Performance. The measurement slices are copied.
//
// Parameters:
// - point: The evaluated point
// - folds: The fold count used for the evaluation
// - measurements: Metric id to per-fold values
// - model: The trained classifier or configuration, kept for the caller
// - duration: Wall time spent evaluating
func NewPerformance(point Point, folds int, measurements map[string][]float64, model any, duration time.Duration) Performance {
	m := make(map[string][]float64, len(measurements))
	for id, values := range measurements {
		v := make([]float64, len(values))
		copy(v, values)
		m[id] = v
	}

	return Performance{
		point:        point,
		folds:        folds,
		measurements: m,
		model:        model,
		duration:     duration,
	}
}

// Point returns the evaluated point.
func (p Performance) Point() Point {
	return p.point
}

// Folds returns the fold count the point was evaluated with.
func (p Performance) Folds() int {
	return p.folds
}

// Model returns the trained classifier or configuration produced by the
// evaluation.
func (p Performance) Model() any {
	return p.model
}

// Duration returns the evaluation wall time.
func (p Performance) Duration() time.Duration {
	return p.duration
}

// Metric returns the mean of metric id over folds, and whether the metric was
// measured at all.
func (p Performance) Metric(id string) (float64, bool) {
	values, ok := p.measurements[id]
	if !ok || len(values) == 0 {
		return 0, false
	}

	return stat.Mean(values, nil), true
}

// StdDev returns the sample standard deviation of metric id over folds. It is
// zero when fewer than two folds were measured.
func (p Performance) StdDev(id string) float64 {
	values := p.measurements[id]
	if len(values) < 2 {
		return 0
	}

	return stat.StdDev(values, nil)
}

// FoldValues returns a copy of the per-fold values of metric id.
func (p Performance) FoldValues(id string) []float64 {
	values := p.measurements[id]
	out := make([]float64, len(values))
	copy(out, values)

	return out
}

// MetricIDs returns the ids of every measured metric, sorted.
func (p Performance) MetricIDs() []string {
	ids := make([]string, 0, len(p.measurements))
	for id := range p.measurements {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
