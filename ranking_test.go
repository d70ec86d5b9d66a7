package hillclimb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricPerf(metric string, i int, value float64) Performance {
	p := NewPoint([]float64{float64(i)}, []int{i})

	return NewPerformance(p, 1, map[string][]float64{metric: {value}}, nil, 0)
}

func rankingFor(t *testing.T, metric string) Ranking {
	t.Helper()

	r, err := NewRanking(&ClassifierEvaluator{}, metric)
	require.NoError(t, err)

	return r
}

func TestRankingPolarity(t *testing.T) {
	t.Run("lower is better", func(t *testing.T) {
		r := rankingFor(t, MetricErrorRate)
		assert.Equal(t, LowerIsBetter, r.Polarity)

		best, err := r.Best([]Performance{
			metricPerf(MetricErrorRate, 0, 0.20),
			metricPerf(MetricErrorRate, 1, 0.10),
		})
		require.NoError(t, err)

		assert.Equal(t, 1, best.Point().Index(0))
	})

	t.Run("higher is better", func(t *testing.T) {
		r := rankingFor(t, MetricAccuracy)
		assert.Equal(t, HigherIsBetter, r.Polarity)

		best, err := r.Best([]Performance{
			metricPerf(MetricAccuracy, 0, 0.10),
			metricPerf(MetricAccuracy, 1, 0.20),
		})
		require.NoError(t, err)

		assert.Equal(t, 1, best.Point().Index(0))
	})
}

func TestRankingTiesKeepEnumerationOrder(t *testing.T) {
	r := rankingFor(t, MetricAccuracy)

	perfs := []Performance{
		metricPerf(MetricAccuracy, 0, 0.5),
		metricPerf(MetricAccuracy, 1, 0.9),
		metricPerf(MetricAccuracy, 2, 0.9),
		metricPerf(MetricAccuracy, 3, 0.7),
	}

	best, err := r.Best(perfs)
	require.NoError(t, err)
	assert.Equal(t, 1, best.Point().Index(0))

	sorted, err := r.Sort(perfs)
	require.NoError(t, err)

	order := make([]int, len(sorted))
	for i, p := range sorted {
		order[i] = p.Point().Index(0)
	}

	assert.Equal(t, []int{1, 2, 3, 0}, order)
}

func TestRankingNaNRanksLast(t *testing.T) {
	r := rankingFor(t, MetricErrorRate)

	best, err := r.Best([]Performance{
		metricPerf(MetricErrorRate, 0, math.NaN()),
		metricPerf(MetricErrorRate, 1, 0.4),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, best.Point().Index(0))
}

func TestRankingUniform(t *testing.T) {
	r := rankingFor(t, MetricAccuracy)

	uniform, err := r.Uniform([]Performance{
		metricPerf(MetricAccuracy, 0, 0.5),
		metricPerf(MetricAccuracy, 1, 0.5),
		metricPerf(MetricAccuracy, 2, 0.5),
	})
	require.NoError(t, err)
	assert.True(t, uniform)

	uniform, err = r.Uniform([]Performance{
		metricPerf(MetricAccuracy, 0, 0.5),
		metricPerf(MetricAccuracy, 1, 0.6),
	})
	require.NoError(t, err)
	assert.False(t, uniform)

	// A single survivor is not uniform.
	uniform, err = r.Uniform([]Performance{metricPerf(MetricAccuracy, 0, 0.5)})
	require.NoError(t, err)
	assert.False(t, uniform)
}

func TestRankingErrors(t *testing.T) {
	r := rankingFor(t, MetricAccuracy)

	_, err := r.Best(nil)
	assert.Error(t, err)

	_, err = r.Best([]Performance{metricPerf(MetricKappa, 0, 0.5)})
	assert.Error(t, err)

	_, err = NewRanking(&ClassifierEvaluator{}, "unknown")
	assert.Error(t, err)
}

func TestMetricTable(t *testing.T) {
	table := NewMetricTable()
	table.Register(MetricDefinition{ID: "latency", Description: "p99 latency", Polarity: LowerIsBetter})

	polarity, err := table.Polarity("latency")
	require.NoError(t, err)
	assert.Equal(t, LowerIsBetter, polarity)

	_, err = table.Polarity(MetricAccuracy)
	assert.Error(t, err)

	defaults := DefaultMetricTable()
	for _, id := range []string{MetricAccuracy, MetricKappa, MetricAUC} {
		polarity, err := defaults.Polarity(id)
		require.NoError(t, err)
		assert.Equal(t, HigherIsBetter, polarity, id)
	}

	for _, id := range []string{MetricErrorRate, MetricRMSE, MetricLogLoss} {
		polarity, err := defaults.Polarity(id)
		require.NoError(t, err)
		assert.Equal(t, LowerIsBetter, polarity, id)
	}

	list := defaults.List()
	require.NotEmpty(t, list)
	assert.Equal(t, MetricAccuracy, list[0].ID)
	assert.Equal(t, "lower_is_better", LowerIsBetter.String())
}
