package hillclimb

import (
	"errors"
	"fmt"
	"iter"
)

// Space is a rectangular region of the parameter lattice. A full space spans
// every value of every dimension. A subspace keeps the dimensions of its full
// space but restricts each one to an inclusive index window [lo, hi].
//
// Space is immutable and safe for concurrent use.
type Space struct {
	dims []Dimension
	lo   []int
	hi   []int
	full *Space
}

// NewSpace builds the full space over the given dimensions.
//
// Returns:
// - *Space: The full space
// - error: If no dimension is given or any dimension is invalid
func NewSpace(dims ...Dimension) (*Space, error) {
	if len(dims) == 0 {
		return nil, errors.New("space needs at least one dimension")
	}

	names := make(map[string]struct{}, len(dims))
	copied := make([]Dimension, len(dims))
	lo := make([]int, len(dims))
	hi := make([]int, len(dims))

	for i, d := range dims {
		if err := d.Validate(); err != nil {
			return nil, err
		}

		if _, ok := names[d.Name]; ok {
			return nil, fmt.Errorf("duplicate dimension %q", d.Name)
		}

		names[d.Name] = struct{}{}
		copied[i] = ListDimension(d.Name, d.Values...)
		hi[i] = len(d.Values) - 1
	}

	s := &Space{dims: copied, lo: lo, hi: hi}
	s.full = s

	return s, nil
}

// Full returns the unrestricted space this space was derived from. For a full
// space it returns the space itself.
func (s *Space) Full() *Space {
	return s.full
}

// IsFull reports whether s is the unrestricted space.
func (s *Space) IsFull() bool {
	return s.full == s
}

// Dimensions returns a copy of the dimension definitions of the full space.
func (s *Space) Dimensions() []Dimension {
	dims := make([]Dimension, len(s.dims))
	for i, d := range s.dims {
		dims[i] = ListDimension(d.Name, d.Values...)
	}

	return dims
}

// Bounds returns the inclusive index window of dimension i.
func (s *Space) Bounds(i int) (lo, hi int) {
	return s.lo[i], s.hi[i]
}

// Size returns the number of points in the region.
func (s *Space) Size() int {
	size := 1
	for i := range s.dims {
		size *= s.hi[i] - s.lo[i] + 1
	}

	return size
}

// Values returns a lazy, restartable sequence of every point in the region.
// The order is deterministic: lexicographic over lattice locations, with the
// last dimension varying fastest.
func (s *Space) Values() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		location := make([]int, len(s.dims))
		copy(location, s.lo)

		for {
			if !yield(s.pointAt(location)) {
				return
			}

			// Odometer increment from the last dimension.
			i := len(location) - 1
			for ; i >= 0; i-- {
				if location[i] < s.hi[i] {
					location[i]++

					break
				}

				location[i] = s.lo[i]
			}

			if i < 0 {
				return
			}
		}
	}
}

// Points materialises Values into a slice.
func (s *Space) Points() []Point {
	points := make([]Point, 0, s.Size())
	for p := range s.Values() {
		points = append(points, p)
	}

	return points
}

// Contains reports whether location lies inside the region.
func (s *Space) Contains(location []int) bool {
	if len(location) != len(s.dims) {
		return false
	}

	for i, l := range location {
		if l < s.lo[i] || l > s.hi[i] {
			return false
		}
	}

	return true
}

// PointAt returns the point at location.
func (s *Space) PointAt(location []int) (Point, error) {
	if !s.Contains(location) {
		return Point{}, fmt.Errorf("location %v outside of space", location)
	}

	return s.pointAt(location), nil
}

// IsOnBorder reports whether location touches the border of the full space:
// at least one coordinate sits at index 0 or at the last index of its
// dimension. A dimension with a single legal value is always at its border.
//
// The full space is authoritative even when called on a subspace, because a
// subspace edge says nothing about whether the optimum may lie further out.
func (s *Space) IsOnBorder(location []int) bool {
	full := s.full

	for i, l := range location {
		if i >= len(full.dims) {
			break
		}

		last := len(full.dims[i].Values) - 1
		if l <= 0 || l >= last {
			return true
		}
	}

	return false
}

// Subspace returns the neighbourhood of location: per dimension the indices
// location-1, location and location+1, clipped to the full space. A dimension
// with a single value contributes only that value.
func (s *Space) Subspace(location []int) (*Space, error) {
	full := s.full
	if !full.Contains(location) {
		return nil, fmt.Errorf("location %v outside of space", location)
	}

	lo := make([]int, len(location))
	hi := make([]int, len(location))

	for i, l := range location {
		lo[i] = max(l-1, 0)
		hi[i] = min(l+1, len(full.dims[i].Values)-1)
	}

	return &Space{dims: full.dims, lo: lo, hi: hi, full: full}, nil
}

// String describes the region, e.g. "space[a:0..2 b:1..3]".
func (s *Space) String() string {
	out := "space["
	for i, d := range s.dims {
		if i > 0 {
			out += " "
		}

		out += fmt.Sprintf("%s:%d..%d", d.Name, s.lo[i], s.hi[i])
	}

	return out + "]"
}

func (s *Space) pointAt(location []int) Point {
	values := make([]float64, len(location))
	for i, l := range location {
		values[i] = s.dims[i].Values[l]
	}

	return NewPoint(values, location)
}
