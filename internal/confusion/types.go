package confusion

import (
	"github.com/danielpatrickdp/cutscan/internal/cut"
	"github.com/danielpatrickdp/cutscan/internal/grid"
)

// #region counts
// Counts is the confusion matrix of one candidate cut. Accepted records are
// classifier-positive.
type Counts struct {
	TruePos  int64 `json:"true_pos"`
	FalsePos int64 `json:"false_pos"`
	TrueNeg  int64 `json:"true_neg"`
	FalseNeg int64 `json:"false_neg"`
}

// Accepted is TruePos + FalsePos.
func (c Counts) Accepted() int64 {
	return c.TruePos + c.FalsePos
}

// #endregion counts

// #region table
// Table holds the counts of every candidate in one scan. It is owned by the
// scan that created it and is never shared between scans.
type Table struct {
	Lattice         grid.Lattice
	Predicate       cut.Predicate
	Counts          []Counts
	TotalSignal     int64
	TotalBackground int64
}

// #endregion table
