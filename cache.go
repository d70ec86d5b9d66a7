package hillclimb

import (
	"fmt"
	"sync"
)

// cacheKey identifies one evaluation: a point under a fold count.
type cacheKey struct {
	folds int
	point string
}

// ResultCache memoises Performances by (fold count, Point) so that every
// distinct pair is evaluated at most once during a search.
//
// Thread safety:
// - All fields are protected by the RWMutex
// - Entries are never overwritten: the first Put for a key wins
// - A Performance is stored whole or not at all
type ResultCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Performance
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[cacheKey]Performance)}
}

// IsCached reports whether (folds, p) has a stored Performance.
func (c *ResultCache) IsCached(folds int, p Point) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.entries[cacheKey{folds: folds, point: p.Key()}]

	return ok
}

// Get returns the Performance stored for (folds, p).
//
// Get must only be called after a positive IsCached. A miss is a programming
// error and panics.
func (c *ResultCache) Get(folds int, p Point) Performance {
	perf, ok := c.Lookup(folds, p)
	if !ok {
		panic(fmt.Sprintf("hillclimb: no cached performance for folds=%d point=%s", folds, p))
	}

	return perf
}

// Lookup returns the Performance stored for (folds, p) and whether it exists.
func (c *ResultCache) Lookup(folds int, p Point) (Performance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	perf, ok := c.entries[cacheKey{folds: folds, point: p.Key()}]

	return perf, ok
}

// Put stores perf for (folds, p) unless an entry already exists. It reports
// whether perf was stored.
func (c *ResultCache) Put(folds int, p Point, perf Performance) bool {
	key := cacheKey{folds: folds, point: p.Key()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return false
	}

	c.entries[key] = perf

	return true
}

// Len returns the number of stored entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]Performance)
}
