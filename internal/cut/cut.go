package cut

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownPredicate is returned by Parse for an unrecognised name.
var ErrUnknownPredicate = errors.New("unknown cut predicate")

// #region parse
// Parse maps a configuration name onto a Predicate.
func Parse(s string) (Predicate, error) {
	switch p := Predicate(strings.ToLower(strings.TrimSpace(s))); p {
	case Below, Above, Interval, Box:
		return p, nil
	}
	return "", errors.Wrapf(ErrUnknownPredicate, "%q", s)
}

// #endregion parse

// #region shape
// Inputs is the number of observed values per record.
func (p Predicate) Inputs() int {
	if p == Box {
		return 2
	}
	return 1
}

// Arity is the number of bounds per candidate.
func (p Predicate) Arity() int {
	switch p {
	case Interval:
		return 2
	case Box:
		return 3
	}
	return 1
}

// #endregion shape

// #region accept
// Accept reports whether obs falls inside the region described by bounds.
// NaN observations are never accepted.
func (p Predicate) Accept(obs, bounds []float64) bool {
	switch p {
	case Below:
		return obs[0] < bounds[0]
	case Above:
		return obs[0] > bounds[0]
	case Interval:
		return bounds[0] <= obs[0] && obs[0] <= bounds[1]
	case Box:
		return bounds[0] <= obs[0] && obs[0] <= bounds[1] && obs[1] < bounds[2]
	}
	return false
}

// Empty reports a degenerate region (left >= right). Such candidates stay in
// the lattice but are never ranked.
func (p Predicate) Empty(bounds []float64) bool {
	switch p {
	case Interval, Box:
		return bounds[0] >= bounds[1]
	}
	return false
}

// Permissive reports whether region a contains region b, so that every
// record accepted by b is also accepted by a.
func (p Predicate) Permissive(a, b []float64) bool {
	switch p {
	case Below:
		return a[0] >= b[0]
	case Above:
		return a[0] <= b[0]
	case Interval:
		return a[0] <= b[0] && a[1] >= b[1]
	case Box:
		return a[0] <= b[0] && a[1] >= b[1] && a[2] >= b[2]
	}
	return false
}

// #endregion accept

// #region describe
// Describe renders bounds as a readable condition over the named inputs.
func (p Predicate) Describe(inputs []string, bounds []float64) string {
	name := func(i int) string {
		if i < len(inputs) {
			return inputs[i]
		}
		return fmt.Sprintf("x%d", i)
	}
	switch p {
	case Below:
		return fmt.Sprintf("%s < %.6g", name(0), bounds[0])
	case Above:
		return fmt.Sprintf("%s > %.6g", name(0), bounds[0])
	case Interval:
		return fmt.Sprintf("%.6g <= %s <= %.6g", bounds[0], name(0), bounds[1])
	case Box:
		return fmt.Sprintf("%.6g <= %s <= %.6g && %s < %.6g", bounds[0], name(0), bounds[1], name(1), bounds[2])
	}
	return string(p)
}

// #endregion describe
