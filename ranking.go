package hillclimb

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Ranking is a total order over Performances for one metric.
//
// Ties on the metric keep the input order, which the controller guarantees to
// be the deterministic enumeration order of the region. NaN values rank last.
type Ranking struct {
	// Metric is the id of the optimised measurement.
	Metric string

	// Polarity tells whether larger values are better.
	Polarity Polarity

	// Value extracts the metric from a Performance.
	Value func(Performance) (float64, error)
}

// NewRanking creates the ranking the evaluator defines for metric.
func NewRanking(ev Evaluator, metric string) (Ranking, error) {
	polarity, err := ev.Polarity(metric)
	if err != nil {
		return Ranking{}, err
	}

	return Ranking{
		Metric:   metric,
		Polarity: polarity,
		Value: func(p Performance) (float64, error) {
			return ev.MetricValue(p, metric)
		},
	}, nil
}

// Better reports whether value a is strictly better than value b.
func (r Ranking) Better(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	case r.Polarity == LowerIsBetter:
		return a < b
	default:
		return a > b
	}
}

// Sort returns a copy of perfs ordered best first. The sort is stable.
func (r Ranking) Sort(perfs []Performance) ([]Performance, error) {
	values, err := r.values(perfs)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(perfs))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(i, j int) bool {
		return r.Better(values[idx[i]], values[idx[j]])
	})

	sorted := make([]Performance, len(perfs))
	for i, k := range idx {
		sorted[i] = perfs[k]
	}

	return sorted, nil
}

// Best returns the best Performance. On ties the earliest one wins.
func (r Ranking) Best(perfs []Performance) (Performance, error) {
	if len(perfs) == 0 {
		return Performance{}, errors.New("no performance to rank")
	}

	values, err := r.values(perfs)
	if err != nil {
		return Performance{}, err
	}

	best := 0
	for i := 1; i < len(perfs); i++ {
		if r.Better(values[i], values[best]) {
			best = i
		}
	}

	return perfs[best], nil
}

// Uniform reports whether at least two Performances exist and all of them
// share exactly the same metric value. No candidate can then be preferred.
func (r Ranking) Uniform(perfs []Performance) (bool, error) {
	if len(perfs) < 2 {
		return false, nil
	}

	values, err := r.values(perfs)
	if err != nil {
		return false, err
	}

	for _, v := range values[1:] {
		if v != values[0] {
			return false, nil
		}
	}

	return true, nil
}

func (r Ranking) values(perfs []Performance) ([]float64, error) {
	values := make([]float64, len(perfs))

	for i, p := range perfs {
		v, err := r.Value(p)
		if err != nil {
			return nil, fmt.Errorf("metric %q of point %s: %w", r.Metric, p.Point(), err)
		}

		values[i] = v
	}

	return values, nil
}
