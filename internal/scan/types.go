package scan

import (
	"time"

	"go-hep.org/x/hep/hbook"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/confusion"
	"github.com/danielpatrickdp/cutscan/internal/cut"
	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/grid"
)

// progressEvery is the record interval between progress log lines.
const progressEvery = 10000

// #region job
// Job is one parameterized threshold scan.
type Job struct {
	Name      string
	Predicate cut.Predicate
	// Variables are the observed values, one per predicate input.
	Variables []classifier.Source
	// Axes span the candidate lattice, one per predicate bound.
	Axes       []grid.Axis
	TieBreak   eval.TieBreak
	Histograms []HistogramSpec
}

// HistogramSpec is an observable histogrammed before and after the best cut.
// Variable names a record field, a derived quantity, or a scan variable by
// its Name (e.g. "ANN") to histogram the classifier output.
type HistogramSpec struct {
	Name     string
	Variable string
	Bins     int
	Min      float64
	Max      float64
}

// #endregion job

// #region histograms
// HistSet holds the histograms of one observable. The first three are
// filled on every record during the first pass; the rest at the best cut
// during the second pass.
type HistSet struct {
	Spec HistogramSpec

	All        *hbook.H1D
	Signal     *hbook.H1D
	Background *hbook.H1D

	Accepted           *hbook.H1D
	Rejected           *hbook.H1D
	AcceptedSignal     *hbook.H1D
	AcceptedBackground *hbook.H1D
}

// #endregion histograms

// #region outcome
// Outcome is everything one scan produced. Result is nil when no candidate
// qualified.
type Outcome struct {
	Job        Job
	Source     string
	Table      *confusion.Table
	Stats      []eval.Stats
	Result     *eval.ScanResult
	Histograms []*HistSet
	Records    int64
	Passes     int
	Elapsed    time.Duration
}

// #endregion outcome
