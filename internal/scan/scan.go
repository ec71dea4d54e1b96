package scan

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go-hep.org/x/hep/hbook"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/confusion"
	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/event"
	"github.com/danielpatrickdp/cutscan/internal/grid"
)

// ErrInvalidJob marks configuration errors found before any record is read.
var ErrInvalidJob = errors.New("invalid scan job")

// #region validate
// Validate checks the job's shape. Grid errors keep grid.ErrInvalidGrid in
// their chain.
func (j Job) Validate() error {
	if j.Name == "" {
		return errors.Wrap(ErrInvalidJob, "job has no name")
	}
	if _, err := eval.ParseTieBreak(string(j.TieBreak)); err != nil {
		return errors.Mark(errors.Wrapf(err, "job %s", j.Name), ErrInvalidJob)
	}
	if got, want := len(j.Variables), j.Predicate.Inputs(); got != want {
		return errors.Wrapf(ErrInvalidJob, "job %s: %s cut observes %d variables, have %d", j.Name, j.Predicate, want, got)
	}
	if got, want := len(j.Axes), j.Predicate.Arity(); got != want {
		return errors.Wrapf(ErrInvalidJob, "job %s: %s cut needs %d axes, have %d", j.Name, j.Predicate, want, got)
	}
	for _, v := range j.Variables {
		if err := v.Validate(); err != nil {
			return errors.Mark(errors.Wrapf(err, "job %s", j.Name), ErrInvalidJob)
		}
	}
	for _, a := range j.Axes {
		if len(a.Cuts) == 0 {
			return errors.Wrapf(grid.ErrInvalidGrid, "job %s: axis %q is empty", j.Name, a.Name)
		}
	}
	seen := make(map[string]bool, len(j.Histograms))
	for _, h := range j.Histograms {
		if h.Name == "" || h.Variable == "" {
			return errors.Wrapf(ErrInvalidJob, "job %s: histogram needs a name and a variable", j.Name)
		}
		if seen[h.Name] {
			return errors.Wrapf(ErrInvalidJob, "job %s: duplicate histogram %q", j.Name, h.Name)
		}
		seen[h.Name] = true
		if h.Bins <= 0 || !(h.Max > h.Min) {
			return errors.Wrapf(ErrInvalidJob, "job %s: histogram %q has bad binning %d [%g, %g)", j.Name, h.Name, h.Bins, h.Min, h.Max)
		}
	}
	return nil
}

// VariableNames lists the scan variables by name, in predicate input order.
func (j Job) VariableNames() []string {
	out := make([]string, len(j.Variables))
	for i, v := range j.Variables {
		out[i] = v.Name()
	}
	return out
}

// Fields lists the raw record fields the job reads. all is true when a model
// variable declares no inputs and so needs every field.
func (j Job) Fields() (fields []string, all bool) {
	set := map[string]bool{}
	for _, v := range j.Variables {
		if v.Variant != classifier.RawFeature && len(v.Inputs) == 0 {
			all = true
		}
		for _, f := range v.Fields() {
			set[f] = true
		}
	}
	vars := j.variableIndex()
	for _, h := range j.Histograms {
		if _, ok := vars[h.Variable]; ok {
			continue
		}
		for _, f := range event.Requires(h.Variable) {
			set[f] = true
		}
	}
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields, all
}

func (j Job) variableIndex() map[string]int {
	out := make(map[string]int, len(j.Variables))
	for i, v := range j.Variables {
		out[v.Name()] = i
	}
	return out
}

// Describe renders the selected cut as a condition.
func (o *Outcome) Describe() string {
	if o.Result == nil {
		return "no valid candidate"
	}
	return o.Job.Predicate.Describe(o.Job.VariableNames(), o.Result.Cut)
}

// #endregion validate

// #region run
// Run scans src with job. The first pass accumulates the confusion table
// and the before-cut histograms. A second pass fills the after-cut
// histograms, only when a best cut exists and histograms are configured.
// Any read or scoring fault aborts the scan without a partial result. A
// scan where no candidate qualifies is not an error: Outcome.Result is nil.
func Run(ctx context.Context, src event.Source, ev classifier.Evaluator, job Job, logger *slog.Logger) (*Outcome, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if job.TieBreak == "" {
		job.TieBreak = eval.TieFirst
	}
	lattice, err := grid.Cross(job.Axes...)
	if err != nil {
		return nil, errors.Wrapf(err, "job %s", job.Name)
	}
	table, err := confusion.NewTable(lattice, job.Predicate)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "job %s", job.Name), ErrInvalidJob)
	}

	start := time.Now()
	log := logger.With("job", job.Name, "source", src.Name())
	log.Info("scan started", "candidates", table.Len(), "predicate", string(job.Predicate))

	hists := newHistSets(job)
	vars := job.variableIndex()
	acc := confusion.NewAccumulator(table)
	obs := make([]float64, len(job.Variables))

	var n int64
	err = src.Scan(ctx, func(rec event.Record) error {
		if err := observe(ctx, ev, job.Variables, rec, obs); err != nil {
			return errors.Wrapf(err, "record %d", n)
		}
		acc.Add(obs, rec.Signal())
		for _, h := range hists {
			x, err := histValue(h.Spec, vars, obs, rec)
			if err != nil {
				return errors.Wrapf(err, "record %d", n)
			}
			fill(h.All, x)
			if rec.Signal() {
				fill(h.Signal, x)
			} else {
				fill(h.Background, x)
			}
		}
		n++
		if n%progressEvery == 0 {
			log.Info("scan progress", "pass", 1, "records", n)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "job %s: pass 1", job.Name)
	}

	stats := eval.Evaluate(table)
	out := &Outcome{
		Job:        job,
		Source:     src.Name(),
		Table:      table,
		Stats:      stats,
		Histograms: hists,
		Records:    n,
		Passes:     1,
	}
	res, err := eval.Select(table, stats, job.TieBreak)
	switch {
	case errors.Is(err, eval.ErrNoValidCandidate):
		log.Warn("no valid candidate", "records", n, "signal", table.TotalSignal, "background", table.TotalBackground)
	case err != nil:
		return nil, errors.Wrapf(err, "job %s", job.Name)
	default:
		out.Result = res
	}

	if out.Result != nil && len(hists) > 0 {
		if err := fillAfter(ctx, src, ev, job, out.Result.Cut, hists, log); err != nil {
			return nil, errors.Wrapf(err, "job %s: pass 2", job.Name)
		}
		out.Passes = 2
	}

	out.Elapsed = time.Since(start)
	log.Info("scan finished",
		"records", n,
		"passes", out.Passes,
		"best", out.Describe(),
		"elapsed", out.Elapsed)
	return out, nil
}

// RunAll runs every job over src, at most parallel at a time. Outcomes keep
// the job order. The first failure cancels the remaining jobs.
func RunAll(ctx context.Context, src event.Source, ev classifier.Evaluator, jobs []Job, parallel int, logger *slog.Logger) ([]*Outcome, error) {
	if parallel < 1 {
		parallel = 1
	}
	outs := make([]*Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range jobs {
		g.Go(func() error {
			out, err := Run(gctx, src, ev, jobs[i], logger)
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// #endregion run

// #region pass-two
func fillAfter(ctx context.Context, src event.Source, ev classifier.Evaluator, job Job, bounds []float64, hists []*HistSet, log *slog.Logger) error {
	vars := job.variableIndex()
	obs := make([]float64, len(job.Variables))
	var n int64
	return src.Scan(ctx, func(rec event.Record) error {
		if err := observe(ctx, ev, job.Variables, rec, obs); err != nil {
			return errors.Wrapf(err, "record %d", n)
		}
		accepted := job.Predicate.Accept(obs, bounds)
		for _, h := range hists {
			x, err := histValue(h.Spec, vars, obs, rec)
			if err != nil {
				return errors.Wrapf(err, "record %d", n)
			}
			if !accepted {
				fill(h.Rejected, x)
				continue
			}
			fill(h.Accepted, x)
			if rec.Signal() {
				fill(h.AcceptedSignal, x)
			} else {
				fill(h.AcceptedBackground, x)
			}
		}
		n++
		if n%progressEvery == 0 {
			log.Info("scan progress", "pass", 2, "records", n)
		}
		return nil
	})
}

// #endregion pass-two

// #region helpers
func observe(ctx context.Context, ev classifier.Evaluator, vars []classifier.Source, rec event.Record, dst []float64) error {
	for i, v := range vars {
		x, err := v.Score(ctx, ev, rec)
		if err != nil {
			return errors.Wrapf(err, "variable %s", v.Name())
		}
		dst[i] = x
	}
	return nil
}

func histValue(spec HistogramSpec, vars map[string]int, obs []float64, rec event.Record) (float64, error) {
	if i, ok := vars[spec.Variable]; ok {
		return obs[i], nil
	}
	return rec.Value(spec.Variable)
}

// fill skips undefined values such as the missing mass of an unphysical
// event.
func fill(h *hbook.H1D, x float64) {
	if math.IsNaN(x) {
		return
	}
	h.Fill(x, 1)
}

func newHistSets(job Job) []*HistSet {
	out := make([]*HistSet, len(job.Histograms))
	for i, spec := range job.Histograms {
		mk := func(suffix string) *hbook.H1D {
			h := hbook.NewH1D(spec.Bins, spec.Min, spec.Max)
			h.Annotation()["name"] = job.Name + "_" + spec.Name + "_" + suffix
			h.Annotation()["title"] = spec.Variable + " (" + suffix + ")"
			return h
		}
		out[i] = &HistSet{
			Spec:               spec,
			All:                mk("all"),
			Signal:             mk("sig"),
			Background:         mk("bkg"),
			Accepted:           mk("accepted"),
			Rejected:           mk("rejected"),
			AcceptedSignal:     mk("sig_after"),
			AcceptedBackground: mk("bkg_after"),
		}
	}
	return out
}

// #endregion helpers
