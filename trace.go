package hillclimb

import "sync"

// TraceStep is one accepted "best of iteration" entry.
type TraceStep struct {
	// Iteration is 0 for the initial pass.
	Iteration int

	// State is the phase the step was taken in.
	State State

	// Folds is the fold count of the iteration.
	Folds int

	// Best is the best Performance of the iteration.
	Best Performance

	// Value is the optimised metric value of Best.
	Value float64

	// RegionSize, Evaluated, Cached and Failed describe the region.
	RegionSize int
	Evaluated  int
	Cached     int
	Failed     int
}

// SearchTrace is the ordered log of accepted bests of a search.
// It is safe for concurrent use.
type SearchTrace struct {
	mu    sync.RWMutex
	steps []TraceStep
}

// NewSearchTrace creates an empty trace.
func NewSearchTrace() *SearchTrace {
	return &SearchTrace{}
}

// Add appends a step.
func (t *SearchTrace) Add(step TraceStep) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.steps = append(t.steps, step)
}

// Steps returns a copy of all steps.
func (t *SearchTrace) Steps() []TraceStep {
	t.mu.RLock()
	defer t.mu.RUnlock()

	steps := make([]TraceStep, len(t.steps))
	copy(steps, t.steps)

	return steps
}

// Len returns the number of steps.
func (t *SearchTrace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.steps)
}

// Last returns the newest step, if any.
func (t *SearchTrace) Last() (TraceStep, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.steps) == 0 {
		return TraceStep{}, false
	}

	return t.steps[len(t.steps)-1], true
}

// Improved reports whether the newest step moved to a different point than
// the step before it. Points are compared by value.
func (t *SearchTrace) Improved() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.steps)
	if n < 2 {
		return n == 1
	}

	return !t.steps[n-1].Best.Point().Equal(t.steps[n-2].Best.Point())
}

// Clear drops every step.
func (t *SearchTrace) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.steps = nil
}
