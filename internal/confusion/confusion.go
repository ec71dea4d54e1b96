package confusion

import (
	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/cut"
	"github.com/danielpatrickdp/cutscan/internal/grid"
)

// #region table
// NewTable allocates zeroed counts for every lattice candidate.
func NewTable(l grid.Lattice, p cut.Predicate) (*Table, error) {
	if l.Arity() != p.Arity() {
		return nil, errors.Newf("%s cut needs %d bounds per candidate, lattice has %d axes", p, p.Arity(), l.Arity())
	}
	return &Table{
		Lattice:   l,
		Predicate: p,
		Counts:    make([]Counts, l.Len()),
	}, nil
}

// Len is the number of candidates.
func (t *Table) Len() int {
	return len(t.Counts)
}

// Empty reports whether candidate i is a degenerate region.
func (t *Table) Empty(i int) bool {
	return t.Predicate.Empty(t.Lattice.At(i))
}

// Bounds returns the cut values of candidate i.
func (t *Table) Bounds(i int) []float64 {
	return append([]float64(nil), t.Lattice.At(i)...)
}

// Records is the number of records accumulated so far.
func (t *Table) Records() int64 {
	return t.TotalSignal + t.TotalBackground
}

// #endregion table

// #region accumulator
// Accumulator streams records into a Table.
type Accumulator struct {
	table *Table
}

// NewAccumulator wraps t. Counts already in t are kept.
func NewAccumulator(t *Table) *Accumulator {
	return &Accumulator{table: t}
}

// Add counts one record against every candidate. obs holds the record's
// observed values in predicate input order and is not retained.
func (a *Accumulator) Add(obs []float64, signal bool) {
	t := a.table
	if signal {
		t.TotalSignal++
	} else {
		t.TotalBackground++
	}
	for i := range t.Counts {
		c := &t.Counts[i]
		accepted := t.Predicate.Accept(obs, t.Lattice.At(i))
		switch {
		case accepted && signal:
			c.TruePos++
		case accepted:
			c.FalsePos++
		case signal:
			c.FalseNeg++
		default:
			c.TrueNeg++
		}
	}
}

// Table returns the accumulated table.
func (a *Accumulator) Table() *Table {
	return a.table
}

// #endregion accumulator

// #region invariant
// Check verifies the label-count invariant on every candidate.
func (t *Table) Check() error {
	for i, c := range t.Counts {
		if c.TruePos+c.FalseNeg != t.TotalSignal || c.FalsePos+c.TrueNeg != t.TotalBackground {
			return errors.AssertionFailedf("candidate %d: counts %+v disagree with totals s=%d b=%d",
				i, c, t.TotalSignal, t.TotalBackground)
		}
	}
	return nil
}

// #endregion invariant
