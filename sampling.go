package hillclimb

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// RandomSource is an explicitly seeded random generator. The search never
// touches a global generator, so sampling is reproducible for a given seed.
//
// RandomSource is safe for concurrent use.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource creates a source seeded with seed.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

// Perm returns a pseudo-random permutation of [0, n).
func (r *RandomSource) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rng.Perm(n)
}

// Int63 returns a non-negative pseudo-random int64.
func (r *RandomSource) Int63() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rng.Int63()
}

// StratifiedSample draws percent % of ds without replacement, preserving the
// class distribution. Every non-empty class keeps at least one instance, and
// the sample keeps the original instance order.
//
// Parameters:
// - ds: The dataset to sample from
// - percent: Sample size in (0, 100]; 100 returns ds unchanged
// - rnd: The random source
//
// Returns:
// - Dataset: The sample
// - error: If percent is out of range
func StratifiedSample(ds Dataset, percent float64, rnd *RandomSource) (Dataset, error) {
	if percent <= 0 || percent > 100 {
		return nil, fmt.Errorf("sample size %v%% out of range (0, 100]", percent)
	}

	if percent == 100 || ds.Len() == 0 {
		return ds, nil
	}

	// Group instance indices per class, classes in first-seen order.
	var classes []string

	strata := make(map[string][]int)

	for i := 0; i < ds.Len(); i++ {
		c := ds.Class(i)
		if _, ok := strata[c]; !ok {
			classes = append(classes, c)
		}

		strata[c] = append(strata[c], i)
	}

	var picked []int

	for _, c := range classes {
		members := strata[c]

		n := int(math.Round(float64(len(members)) * percent / 100))
		n = max(n, 1)

		for _, k := range rnd.Perm(len(members))[:n] {
			picked = append(picked, members[k])
		}
	}

	sort.Ints(picked)

	return ds.Subset(picked), nil
}
