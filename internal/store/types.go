package store

import (
	"time"

	"github.com/danielpatrickdp/cutscan/internal/confusion"
	"github.com/danielpatrickdp/cutscan/internal/eval"
)

// #region status
// Status of a stored run.
const (
	StatusSelected         = "selected"
	StatusNoValidCandidate = "no_valid_candidate"
)

// #endregion status

// TimeLayout stores timestamps as fixed-width UTC text, so that lexical
// order in SQLite is time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region run
// Run is one stored scan. Best is nil when no candidate qualified.
type Run struct {
	RunID           string
	Job             string
	Predicate       string
	Dataset         string
	ConfigJSON      string
	ConfigHash      string
	Records         int64
	TotalSignal     int64
	TotalBackground int64
	Candidates      int
	TieBreak        string
	Status          string
	Best            *Candidate
	Elapsed         time.Duration
	CreatedAt       time.Time
}

// #endregion run

// #region candidate
// Candidate is one row of a stored candidate table.
type Candidate struct {
	Index  int
	Cut    []float64
	Counts confusion.Counts
	Stats  eval.Stats
}

// #endregion candidate
