package eval

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/confusion"
)

// ErrNoValidCandidate is returned when no candidate has a positive,
// defined significance.
var ErrNoValidCandidate = errors.New("no valid candidate")

// #region tie-break
// ParseTieBreak maps "first"/"last" onto a TieBreak. The empty string is
// TieFirst.
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TieFirst):
		return TieFirst, nil
	case string(TieLast):
		return TieLast, nil
	}
	return "", errors.Newf("unknown tie-break %q (want first or last)", s)
}

// #endregion tie-break

// #region compute
// Compute derives the statistics of one candidate. significance is
// TP/sqrt(TP+FP): S and B are the classifier-positive counts.
func Compute(c confusion.Counts, totalSignal, totalBackground int64, empty bool) Stats {
	var st Stats
	accepted := c.TruePos + c.FalsePos
	if accepted > 0 {
		st.Significance = float64(c.TruePos) / math.Sqrt(float64(accepted))
	}
	if totalSignal > 0 {
		st.SignalEfficiency = float64(c.TruePos) / float64(totalSignal)
	}
	if totalBackground > 0 {
		st.BackgroundRejection = 1 - float64(c.FalsePos)/float64(totalBackground)
	}
	if c.FalsePos > 0 {
		st.SignalToBackground = float64(c.TruePos) / float64(c.FalsePos)
	} else if c.TruePos > 0 {
		st.SignalToBackground = math.Inf(1)
	}
	st.Rankable = accepted > 0 && !empty
	if !st.Rankable {
		st.Significance = 0
	}
	return st
}

// Evaluate computes Stats for every candidate in t.
func Evaluate(t *confusion.Table) []Stats {
	out := make([]Stats, t.Len())
	for i, c := range t.Counts {
		out[i] = Compute(c, t.TotalSignal, t.TotalBackground, t.Empty(i))
	}
	return out
}

// SignificanceBefore is the significance with no cut applied.
func SignificanceBefore(t *confusion.Table) float64 {
	n := t.TotalSignal + t.TotalBackground
	if n == 0 {
		return 0
	}
	return float64(t.TotalSignal) / math.Sqrt(float64(n))
}

// #endregion compute

// #region select
// Select picks the arg-max significance over rankable candidates with a
// positive significance, walking candidates in scan order.
func Select(t *confusion.Table, stats []Stats, tb TieBreak) (*ScanResult, error) {
	if len(stats) != t.Len() {
		return nil, errors.AssertionFailedf("have %d stats for %d candidates", len(stats), t.Len())
	}
	best := -1
	for i, st := range stats {
		if !st.Rankable || !(st.Significance > 0) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		switch tb {
		case TieLast:
			if st.Significance >= stats[best].Significance {
				best = i
			}
		default:
			if st.Significance > stats[best].Significance {
				best = i
			}
		}
	}
	if best < 0 {
		return nil, errors.Wrapf(ErrNoValidCandidate, "%d candidates, %d signal, %d background",
			t.Len(), t.TotalSignal, t.TotalBackground)
	}

	ties := 0
	for _, st := range stats {
		if st.Rankable && st.Significance == stats[best].Significance {
			ties++
		}
	}
	if tb == "" {
		tb = TieFirst
	}
	res := &ScanResult{
		Index:    best,
		Cut:      t.Bounds(best),
		Counts:   t.Counts[best],
		Stats:    stats[best],
		TieBreak: tb,
		Ties:     ties,
	}
	res.Metrics = []Metric{
		{Name: "significance_before", Value: SignificanceBefore(t)},
		{Name: "significance", Value: res.Stats.Significance},
		{Name: "signal_efficiency", Value: res.Stats.SignalEfficiency},
		{Name: "background_rejection", Value: res.Stats.BackgroundRejection},
		{Name: "signal_to_background", Value: res.Stats.SignalToBackground},
	}
	return res, nil
}

// #endregion select

// #region curves
// SignificanceCurve is significance against the first cut value. Only
// meaningful for single-axis lattices.
func SignificanceCurve(t *confusion.Table, stats []Stats) Curve {
	c := Curve{Name: "significance"}
	for i, st := range stats {
		c.X = append(c.X, t.Lattice.At(i)[0])
		c.Y = append(c.Y, st.Significance)
	}
	return c
}

// RatioCurve is S/B against the first cut value, skipping candidates where
// the ratio is undefined or infinite.
func RatioCurve(t *confusion.Table, stats []Stats) Curve {
	c := Curve{Name: "ratio"}
	for i, st := range stats {
		if t.Counts[i].FalsePos == 0 {
			continue
		}
		c.X = append(c.X, t.Lattice.At(i)[0])
		c.Y = append(c.Y, st.SignalToBackground)
	}
	return c
}

// ROC is background rejection against signal efficiency.
func ROC(stats []Stats) Curve {
	c := Curve{Name: "roc"}
	for _, st := range stats {
		c.X = append(c.X, st.SignalEfficiency)
		c.Y = append(c.Y, st.BackgroundRejection)
	}
	return c
}

// SignificanceMap lays significance over a two-axis lattice.
func SignificanceMap(t *confusion.Table, stats []Stats) (Map, error) {
	if t.Lattice.Arity() != 2 {
		return Map{}, errors.Newf("significance map needs 2 axes, have %d", t.Lattice.Arity())
	}
	axes := t.Lattice.Axes()
	m := Map{
		Name: "significance_map",
		X:    append([]float64(nil), axes[0].Cuts...),
		Y:    append([]float64(nil), axes[1].Cuts...),
		Z:    make([][]float64, len(axes[0].Cuts)),
	}
	for i := range m.Z {
		m.Z[i] = make([]float64, len(axes[1].Cuts))
	}
	for i, st := range stats {
		c := t.Lattice.Coords(i)
		m.Z[c[0]][c[1]] = st.Significance
	}
	return m, nil
}

// #endregion curves
