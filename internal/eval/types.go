package eval

import (
	"github.com/danielpatrickdp/cutscan/internal/confusion"
)

// #region tie-break
// TieBreak decides between candidates of equal significance.
type TieBreak string

const (
	// TieFirst keeps the first candidate in scan order (running best is
	// replaced on a strictly greater value).
	TieFirst TieBreak = "first"
	// TieLast keeps the last candidate in scan order (replaced on >=).
	TieLast TieBreak = "last"
)

// #endregion tie-break

// #region stats
// Stats are the figures of merit of one candidate. Ratios with a zero
// denominator are reported as 0 and leave the candidate unrankable, except
// SignalToBackground which is +Inf when nothing background-like passes.
type Stats struct {
	Significance        float64
	SignalEfficiency    float64
	BackgroundRejection float64
	SignalToBackground  float64
	Rankable            bool
}

// #endregion stats

// #region metric
// Metric is one named figure printed alongside a selection.
type Metric struct {
	Name  string
	Value float64
}

// #endregion metric

// #region scan-result
// ScanResult is the selected candidate of a scan.
type ScanResult struct {
	Index    int
	Cut      []float64
	Counts   confusion.Counts
	Stats    Stats
	TieBreak TieBreak
	Ties     int // candidates sharing the best significance, including the winner
	Metrics  []Metric
}

// #endregion scan-result

// #region curve
// Curve is an (x, y) series for the reporting sink.
type Curve struct {
	Name string
	X    []float64
	Y    []float64
}

// Map is a significance surface over a two-axis lattice. Z[i][j] belongs to
// X[i], Y[j].
type Map struct {
	Name string
	X    []float64
	Y    []float64
	Z    [][]float64
}

// #endregion curve
