package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/event"
	"github.com/danielpatrickdp/cutscan/internal/scan"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

// significanceTolerance bounds the difference to a hand-computed expected
// significance.
const significanceTolerance = 1e-9

// #region fixture-loader
// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, errors.Wrapf(err, "read fixture %s", path)
	}
	var f Fixture
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, errors.Wrapf(err, "parse fixture %s", path)
	}
	if f.Description == "" {
		f.Description = filepath.Base(path)
	}
	return f, nil
}

// Source serves the fixture records from memory.
func (f Fixture) Source() (*event.SliceSource, error) {
	src := &event.SliceSource{Label: f.Description}
	for i, r := range f.Records {
		signal, err := event.LabelFromInt(r.Label)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		src.Records = append(src.Records, event.FromMap(r.Fields, signal))
	}
	return src, nil
}

// #endregion fixture-loader

// #region fixture-run
// RunFixture scans the fixture records with its job and checks the
// selection against the expectation. Fixtures only use raw fields and
// derived kinematics, so no evaluator is involved.
func RunFixture(ctx context.Context, f Fixture, logger *slog.Logger) (Result, error) {
	job, err := f.Job.Job()
	if err != nil {
		return Result{}, err
	}
	src, err := f.Source()
	if err != nil {
		return Result{}, err
	}
	out, err := scan.Run(ctx, src, nil, job, logger)
	if err != nil {
		return Result{}, err
	}
	mm := f.Expected.check(out)
	return Result{Job: job.Name, Matched: len(mm) == 0, Mismatches: mm, Outcome: out}, nil
}

func (e FixtureExpected) check(out *scan.Outcome) []Mismatch {
	var mm []Mismatch
	add := func(field string, want, got interface{}) {
		mm = append(mm, Mismatch{Field: field, Want: fmt.Sprint(want), Got: fmt.Sprint(got)})
	}
	want := e.Status
	if want == "" {
		want = store.StatusSelected
	}
	r := out.Result
	if r == nil {
		if want != store.StatusNoValidCandidate {
			add("status", want, store.StatusNoValidCandidate)
		}
		return mm
	}
	if want != store.StatusSelected {
		add("status", want, store.StatusSelected)
		return mm
	}
	if r.Index != e.Index {
		add("index", e.Index, r.Index)
	}
	if !sameBits(r.Cut, e.Cut) {
		add("cut", e.Cut, r.Cut)
	}
	if math.Abs(r.Stats.Significance-e.Significance) > significanceTolerance {
		add("significance", e.Significance, r.Stats.Significance)
	}
	if r.Counts.TruePos != e.TruePos || r.Counts.FalsePos != e.FalsePos {
		add("counts", fmt.Sprintf("S=%d B=%d", e.TruePos, e.FalsePos),
			fmt.Sprintf("S=%d B=%d", r.Counts.TruePos, r.Counts.FalsePos))
	}
	if e.Ties > 0 && r.Ties != e.Ties {
		add("ties", e.Ties, r.Ties)
	}
	return mm
}

// #endregion fixture-run
