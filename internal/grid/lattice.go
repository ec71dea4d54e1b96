package grid

import "github.com/cockroachdb/errors"

// #region lattice
// Lattice is the full cross product of a set of axes. Candidate i is laid out
// row-major: the last axis varies fastest. No candidate is ever dropped, so
// an interval lattice keeps (left, right) pairs with left >= right.
type Lattice struct {
	axes  []Axis
	shape []int
	flat  []float64
}

// Cross materializes the cross product of the given axes.
func Cross(axes ...Axis) (Lattice, error) {
	if len(axes) == 0 {
		return Lattice{}, errors.Wrap(ErrInvalidGrid, "no axes")
	}
	n := 1
	shape := make([]int, len(axes))
	for i, a := range axes {
		if len(a.Cuts) == 0 {
			return Lattice{}, errors.Wrapf(ErrInvalidGrid, "axis %q is empty", a.Name)
		}
		shape[i] = len(a.Cuts)
		n *= len(a.Cuts)
	}

	arity := len(axes)
	flat := make([]float64, n*arity)
	idx := make([]int, arity)
	for c := 0; c < n; c++ {
		for k := range axes {
			flat[c*arity+k] = axes[k].Cuts[idx[k]]
		}
		// odometer increment, last axis fastest
		for k := arity - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
	}
	return Lattice{axes: axes, shape: shape, flat: flat}, nil
}

// Len is the number of candidates, the product of the axis lengths.
func (l Lattice) Len() int {
	if len(l.shape) == 0 {
		return 0
	}
	return len(l.flat) / len(l.shape)
}

// Arity is the number of bounds per candidate.
func (l Lattice) Arity() int {
	return len(l.shape)
}

// At returns the bounds of candidate i. The slice aliases lattice storage
// and must not be modified.
func (l Lattice) At(i int) []float64 {
	a := len(l.shape)
	return l.flat[i*a : (i+1)*a : (i+1)*a]
}

// Coords returns the per-axis indices of candidate i.
func (l Lattice) Coords(i int) []int {
	out := make([]int, len(l.shape))
	for k := len(l.shape) - 1; k >= 0; k-- {
		out[k] = i % l.shape[k]
		i /= l.shape[k]
	}
	return out
}

// Shape returns the axis lengths.
func (l Lattice) Shape() []int {
	return append([]int(nil), l.shape...)
}

// Axes returns the lattice axes.
func (l Lattice) Axes() []Axis {
	return l.axes
}

// #endregion lattice
