package hillclimb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classTable builds a table with the given number of rows per class. Rows of
// the same class are contiguous and every row holds its own index.
func classTable(t *testing.T, counts map[string]int, order ...string) *Table {
	t.Helper()

	var rows [][]string

	for _, class := range order {
		for i := 0; i < counts[class]; i++ {
			rows = append(rows, []string{fmt.Sprint(len(rows)), class})
		}
	}

	table, err := NewTable(Header{Attributes: []string{"id", "class"}, ClassIndex: 1}, rows)
	require.NoError(t, err)

	return table
}

func countClasses(ds Dataset) map[string]int {
	counts := map[string]int{}
	for i := 0; i < ds.Len(); i++ {
		counts[ds.Class(i)]++
	}

	return counts
}

func TestStratifiedSampleKeepsDistribution(t *testing.T) {
	table := classTable(t, map[string]int{"a": 60, "b": 30, "c": 10}, "a", "b", "c")

	sample, err := StratifiedSample(table, 50, NewRandomSource(7))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 30, "b": 15, "c": 5}, countClasses(sample))

	// Original instance order is preserved.
	prev := -1
	for i := 0; i < sample.Len(); i++ {
		var id int
		_, err := fmt.Sscan(sample.Row(i)[0], &id)
		require.NoError(t, err)

		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestStratifiedSampleKeepsRareClasses(t *testing.T) {
	table := classTable(t, map[string]int{"a": 99, "b": 1}, "a", "b")

	sample, err := StratifiedSample(table, 10, NewRandomSource(1))
	require.NoError(t, err)

	counts := countClasses(sample)
	assert.Equal(t, 10, counts["a"])
	assert.Equal(t, 1, counts["b"])
}

func TestStratifiedSampleIsReproducible(t *testing.T) {
	table := classTable(t, map[string]int{"a": 40, "b": 40}, "a", "b")

	first, err := StratifiedSample(table, 25, NewRandomSource(42))
	require.NoError(t, err)

	second, err := StratifiedSample(table, 25, NewRandomSource(42))
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())

	for i := 0; i < first.Len(); i++ {
		assert.Equal(t, first.Row(i), second.Row(i))
	}
}

func TestStratifiedSampleBounds(t *testing.T) {
	table := classTable(t, map[string]int{"a": 4}, "a")

	same, err := StratifiedSample(table, 100, NewRandomSource(1))
	require.NoError(t, err)
	assert.Same(t, table, same)

	for _, percent := range []float64{0, -5, 101} {
		_, err := StratifiedSample(table, percent, NewRandomSource(1))
		assert.Error(t, err, percent)
	}
}
