package hillclimb

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// maxValuesPerDimension limits the number of lattice steps a single dimension
// may materialise.
const maxValuesPerDimension = 10000

// Dimension is one tunable parameter of the search: a name and the ordered
// list of values it may take. The position of a value in the list is its
// lattice index.
//
// Usage:
//
//	// Explicit list.
//	kernels := ListDimension("degree", 1, 2, 3)
//
//	// Linear range, integer or float.
//	neighbours, err := LinearDimension("k", 1, 9, 2)
//
//	// Logarithmic range: 10^-3 ... 10^3.
//	cost, err := LogDimension("C", 10, -3, 3, 1)
type Dimension struct {
	// Name identifies the dimension. The ClassifierFactory maps it to an
	// algorithm parameter.
	Name string

	// Values holds the legal values, in lattice order.
	Values []float64
}

// ListDimension creates a dimension from an explicit list of values. The list
// order is the lattice order.
func ListDimension(name string, values ...float64) Dimension {
	v := make([]float64, len(values))
	copy(v, values)

	return Dimension{Name: name, Values: v}
}

// LinearDimension creates a dimension with values min, min+step, ... up to and
// including max.
//
// Type Parameter:
//   - T: The numeric type of the bounds (any integer or float type)
//
// Returns:
// - Dimension: The materialised dimension
// - error: If step is not positive, min > max, or the range is too large
func LinearDimension[T constraints.Integer | constraints.Float](name string, min, max, step T) (Dimension, error) {
	if step <= 0 {
		return Dimension{}, fmt.Errorf("dimension %q: step must be positive, got %v", name, step)
	}

	if min > max {
		return Dimension{}, fmt.Errorf("dimension %q: min %v is greater than max %v", name, min, max)
	}

	fmin, fmax, fstep := float64(min), float64(max), float64(step)

	count := int(math.Floor((fmax-fmin)/fstep+1e-9)) + 1
	if count > maxValuesPerDimension {
		return Dimension{}, fmt.Errorf("dimension %q: %d values exceed limit of %d", name, count, maxValuesPerDimension)
	}

	values := make([]float64, count)
	for i := range values {
		// Multiplying avoids accumulating floating point drift.
		values[i] = roundStep(fmin + float64(i)*fstep)
	}

	return Dimension{Name: name, Values: values}, nil
}

// LogDimension creates a dimension with values base^e for e = minExp,
// minExp+step, ... up to and including maxExp.
func LogDimension(name string, base, minExp, maxExp, step float64) (Dimension, error) {
	if base <= 0 || base == 1 {
		return Dimension{}, fmt.Errorf("dimension %q: invalid log base %v", name, base)
	}

	exps, err := LinearDimension(name, minExp, maxExp, step)
	if err != nil {
		return Dimension{}, err
	}

	values := make([]float64, len(exps.Values))
	for i, e := range exps.Values {
		values[i] = math.Pow(base, e)
	}

	return Dimension{Name: name, Values: values}, nil
}

// ParseDimension parses either a "min:max:step" range or a comma separated
// list of values.
func ParseDimension(name, spec string) (Dimension, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Dimension{}, fmt.Errorf("dimension %q: empty specification", name)
	}

	if strings.Contains(spec, ":") {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return Dimension{}, fmt.Errorf("dimension %q: invalid range %q, expected min:max:step", name, spec)
		}

		bounds := make([]float64, 3)
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return Dimension{}, fmt.Errorf("dimension %q: invalid value %q: %w", name, part, err)
			}

			bounds[i] = v
		}

		return LinearDimension(name, bounds[0], bounds[1], bounds[2])
	}

	var values []float64

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return Dimension{}, fmt.Errorf("dimension %q: invalid value %q: %w", name, part, err)
		}

		values = append(values, v)
	}

	return ListDimension(name, values...), nil
}

// Size returns the number of legal values.
func (d Dimension) Size() int {
	return len(d.Values)
}

// Validate checks the dimension has a name, at least one value, no NaN and no
// duplicate values.
func (d Dimension) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dimension has no name")
	}

	if len(d.Values) == 0 {
		return fmt.Errorf("dimension %q has no values", d.Name)
	}

	seen := make(map[float64]struct{}, len(d.Values))
	for _, v := range d.Values {
		if math.IsNaN(v) {
			return fmt.Errorf("dimension %q contains NaN", d.Name)
		}

		if _, ok := seen[v]; ok {
			return fmt.Errorf("dimension %q contains duplicate value %v", d.Name, v)
		}

		seen[v] = struct{}{}
	}

	return nil
}

// roundStep trims float noise introduced by repeated step arithmetic.
func roundStep(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
