package grid

import (
	"math"

	"github.com/cockroachdb/errors"
)

// ErrInvalidGrid is returned for grid bounds that cannot produce a scan.
var ErrInvalidGrid = errors.New("invalid grid")

// #region spec
// Spec describes an evenly spaced threshold grid over [Low, High).
type Spec struct {
	Low  float64
	High float64
	Step float64
}

// Validate fails fast on bounds that cannot be scanned.
func (s Spec) Validate() error {
	for _, v := range []float64{s.Low, s.High, s.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidGrid, "non-finite bound in low=%g high=%g step=%g", s.Low, s.High, s.Step)
		}
	}
	if s.Step <= 0 {
		return errors.Wrapf(ErrInvalidGrid, "step %g must be positive", s.Step)
	}
	if s.High <= s.Low {
		return errors.Wrapf(ErrInvalidGrid, "high %g must exceed low %g", s.High, s.Low)
	}
	return nil
}

// Count returns floor((High-Low)/Step) as evaluated in float64. A quotient
// that rounds just below an integer (0.3/0.1) loses the last cut. s must be
// valid.
func (s Spec) Count() int {
	return int(math.Floor((s.High - s.Low) / s.Step))
}

// Generate returns the cut values Low + i*Step for i in [0, Count).
func (s Spec) Generate() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	n := s.Count()
	if n == 0 {
		return nil, errors.Wrapf(ErrInvalidGrid, "step %g exceeds range [%g, %g)", s.Step, s.Low, s.High)
	}
	cuts := make([]float64, n)
	for i := range cuts {
		cuts[i] = s.Low + float64(i)*s.Step
	}
	return cuts, nil
}

// #endregion spec

// #region axis
// Axis is one named dimension of a candidate lattice.
type Axis struct {
	Name string
	Cuts []float64
}

// NewAxis generates an axis from a grid spec.
func NewAxis(name string, s Spec) (Axis, error) {
	cuts, err := s.Generate()
	if err != nil {
		return Axis{}, errors.Wrapf(err, "axis %q", name)
	}
	return Axis{Name: name, Cuts: cuts}, nil
}

// ListAxis builds an axis from explicit cut values, kept in the given order.
func ListAxis(name string, values []float64) (Axis, error) {
	if len(values) == 0 {
		return Axis{}, errors.Wrapf(ErrInvalidGrid, "axis %q has no values", name)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Axis{}, errors.Wrapf(ErrInvalidGrid, "axis %q has non-finite value %g", name, v)
		}
	}
	return Axis{Name: name, Cuts: append([]float64(nil), values...)}, nil
}

// #endregion axis
