package hillclimb

import (
	"strconv"
	"strings"
)

// Point is one concrete assignment of values to every tunable dimension of a
// Space, together with its lattice location: the index of each value inside
// its dimension's value list.
//
// A Point is immutable. Every accessor returning a slice returns a copy, so a
// Point may be shared freely between goroutines.
//
// Locations are always expressed in coordinates of the full (unrestricted)
// space, even for points enumerated from a subspace. This keeps border and
// neighbourhood computations consistent across iterations.
type Point struct {
	values   []float64
	location []int
}

// NewPoint creates a point from parameter values and their lattice location.
// Both slices are copied.
//
// Parameters:
// - values: One value per dimension, in dimension order
// - location: One index per dimension, in dimension order
//
// Returns:
// - Point: The immutable point
//
// Note: values and location must have the same length. NewPoint panics
// otherwise, since a mismatch can only come from a programming error.
func NewPoint(values []float64, location []int) Point {
	if len(values) != len(location) {
		panic("hillclimb: point values and location differ in length")
	}

	v := make([]float64, len(values))
	copy(v, values)

	l := make([]int, len(location))
	copy(l, location)

	return Point{values: v, location: l}
}

// Dimensions returns the number of coordinates of the point.
func (p Point) Dimensions() int {
	return len(p.values)
}

// Values returns a copy of the parameter values.
func (p Point) Values() []float64 {
	v := make([]float64, len(p.values))
	copy(v, p.values)

	return v
}

// Location returns a copy of the lattice location.
func (p Point) Location() []int {
	l := make([]int, len(p.location))
	copy(l, p.location)

	return l
}

// Value returns the parameter value of dimension i.
func (p Point) Value(i int) float64 {
	return p.values[i]
}

// Index returns the lattice index of dimension i.
func (p Point) Index(i int) int {
	return p.location[i]
}

// Equal reports whether two points have identical values and locations.
// Equality is by value, never by identity.
func (p Point) Equal(other Point) bool {
	if len(p.values) != len(other.values) || len(p.location) != len(other.location) {
		return false
	}

	for i := range p.values {
		if p.values[i] != other.values[i] {
			return false
		}
	}

	for i := range p.location {
		if p.location[i] != other.location[i] {
			return false
		}
	}

	return true
}

// Key returns a stable string usable as a map key. Two points have the same
// key iff they are Equal.
func (p Point) Key() string {
	var b strings.Builder

	for i, l := range p.location {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(strconv.Itoa(l))
	}

	b.WriteByte('|')

	for i, v := range p.values {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}

	return b.String()
}

// String renders the point as "(v1, v2, ...)".
func (p Point) String() string {
	parts := make([]string, len(p.values))
	for i, v := range p.values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	return "(" + strings.Join(parts, ", ") + ")"
}
