package replay

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/config"
	"github.com/danielpatrickdp/cutscan/internal/event"
	"github.com/danielpatrickdp/cutscan/internal/scan"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

// maxCandidateMismatches caps the per-candidate differences reported.
const maxCandidateMismatches = 10

// #region rerun
// Rerun rebuilds the job of a stored run from its configuration, scans src
// again and compares the outcome with what was stored. The scan is
// deterministic, so any difference points at changed input data or a
// changed implementation.
func Rerun(ctx context.Context, st *store.Store, runID string, src event.Source, ev classifier.Evaluator, logger *slog.Logger) (Result, error) {
	run, err := st.GetRun(runID)
	if err != nil {
		return Result{}, err
	}
	cands, err := st.Candidates(runID)
	if err != nil {
		return Result{}, err
	}
	jc, err := config.ParseJobJSON([]byte(run.ConfigJSON))
	if err != nil {
		return Result{}, errors.Wrapf(err, "run %s", runID)
	}
	job, err := jc.Job()
	if err != nil {
		return Result{}, errors.Wrapf(err, "run %s", runID)
	}

	out, err := scan.Run(ctx, src, ev, job, logger)
	if err != nil {
		return Result{}, errors.Wrapf(err, "rerun %s", runID)
	}
	mm := Compare(run, cands, out)
	return Result{
		RunID:      runID,
		Job:        run.Job,
		Matched:    len(mm) == 0,
		Mismatches: mm,
		Outcome:    out,
	}, nil
}

// #endregion rerun

// #region compare
// Compare lists the differences between a stored run and a fresh outcome.
// Cut bounds compare by bit pattern; statistics by value.
func Compare(run store.Run, cands []store.Candidate, out *scan.Outcome) []Mismatch {
	var mm []Mismatch
	add := func(field string, want, got interface{}) {
		mm = append(mm, Mismatch{Field: field, Want: fmt.Sprint(want), Got: fmt.Sprint(got)})
	}

	fresh, freshCands := store.RunFromOutcome(out, []byte(run.ConfigJSON))
	if run.Status != fresh.Status {
		add("status", run.Status, fresh.Status)
	}
	if run.Records != fresh.Records {
		add("records", run.Records, fresh.Records)
	}
	if run.TotalSignal != fresh.TotalSignal || run.TotalBackground != fresh.TotalBackground {
		add("totals", fmt.Sprintf("%d/%d", run.TotalSignal, run.TotalBackground),
			fmt.Sprintf("%d/%d", fresh.TotalSignal, fresh.TotalBackground))
	}
	if len(cands) != len(freshCands) {
		add("candidates", len(cands), len(freshCands))
		return mm
	}
	switch {
	case run.Best == nil && fresh.Best == nil:
	case run.Best == nil || fresh.Best == nil:
		add("best", describeBest(run.Best), describeBest(fresh.Best))
	default:
		if run.Best.Index != fresh.Best.Index {
			add("best.index", run.Best.Index, fresh.Best.Index)
		}
		if !sameBits(run.Best.Cut, fresh.Best.Cut) {
			add("best.cut", run.Best.Cut, fresh.Best.Cut)
		}
	}

	reported := 0
	for i := range cands {
		if reported == maxCandidateMismatches {
			break
		}
		want, got := cands[i], freshCands[i]
		field := fmt.Sprintf("candidate[%d]", i)
		switch {
		case !sameBits(want.Cut, got.Cut):
			add(field+".cut", want.Cut, got.Cut)
		case want.Counts != got.Counts:
			add(field+".counts", want.Counts, got.Counts)
		case !sameStats(want, got):
			add(field+".stats", want.Stats, got.Stats)
		default:
			continue
		}
		reported++
	}
	return mm
}

func describeBest(c *store.Candidate) string {
	if c == nil {
		return store.StatusNoValidCandidate
	}
	return fmt.Sprintf("index %d cut %v", c.Index, c.Cut)
}

func sameBits(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func sameStats(a, b store.Candidate) bool {
	x, y := a.Stats, b.Stats
	return x.Rankable == y.Rankable &&
		sameValue(x.Significance, y.Significance) &&
		sameValue(x.SignalEfficiency, y.SignalEfficiency) &&
		sameValue(x.BackgroundRejection, y.BackgroundRejection) &&
		sameValue(x.SignalToBackground, y.SignalToBackground)
}

// sameValue treats NaNs as equal and 0 as equal to -0.
func sameValue(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// #endregion compare
