package report

import (
	"github.com/cockroachdb/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook"

	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

// #region write-root
// WriteROOT stores every histogram and curve of outs in one ROOT file.
// Keys are prefixed with the job name. Two-axis scans also get a
// significance map.
func WriteROOT(path string, outs []*scan.Outcome) (err error) {
	f, err := groot.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	for _, out := range outs {
		if err := putOutcome(f, out); err != nil {
			return errors.Wrapf(err, "job %s", out.Job.Name)
		}
	}
	return nil
}

func putOutcome(f *groot.File, out *scan.Outcome) error {
	for _, hs := range out.Histograms {
		hists := []*hbook.H1D{hs.All, hs.Signal, hs.Background}
		if out.Passes > 1 {
			hists = append(hists, hs.Accepted, hs.Rejected, hs.AcceptedSignal, hs.AcceptedBackground)
		}
		for _, h := range hists {
			if err := f.Put(h.Name(), rhist.NewH1DFrom(h)); err != nil {
				return errors.Wrapf(err, "put %s", h.Name())
			}
		}
	}

	t := out.Table
	curves := []eval.Curve{eval.ROC(out.Stats)}
	if t.Lattice.Arity() == 1 {
		curves = append(curves, eval.SignificanceCurve(t, out.Stats), eval.RatioCurve(t, out.Stats))
	}
	for _, c := range curves {
		if len(c.X) == 0 {
			continue
		}
		name := out.Job.Name + "_" + c.Name
		s2 := hbook.NewS2DFrom(c.X, c.Y)
		s2.Annotation()["name"] = name
		s2.Annotation()["title"] = c.Name
		if err := f.Put(name, rhist.NewGraphFrom(s2)); err != nil {
			return errors.Wrapf(err, "put %s", name)
		}
	}

	if t.Lattice.Arity() == 2 {
		m, err := eval.SignificanceMap(t, out.Stats)
		if err != nil {
			return err
		}
		h := mapHist(m)
		name := out.Job.Name + "_" + m.Name
		h.Annotation()["name"] = name
		if err := f.Put(name, rhist.NewH2DFrom(h)); err != nil {
			return errors.Wrapf(err, "put %s", name)
		}
	}
	return nil
}

// #endregion write-root

// #region map-hist
// mapHist bins a significance map with one bin centred on each cut value.
// Axes are assumed evenly spaced, which holds for generated grids.
func mapHist(m eval.Map) *hbook.H2D {
	xlo, xhi := binEdges(m.X)
	ylo, yhi := binEdges(m.Y)
	h := hbook.NewH2D(len(m.X), xlo, xhi, len(m.Y), ylo, yhi)
	for i, x := range m.X {
		for j, y := range m.Y {
			if z := m.Z[i][j]; z != 0 {
				h.Fill(x, y, z)
			}
		}
	}
	return h
}

func binEdges(v []float64) (lo, hi float64) {
	half := 0.5
	if len(v) > 1 {
		half = (v[len(v)-1] - v[0]) / float64(len(v)-1) / 2
	}
	return v[0] - half, v[len(v)-1] + half
}

// #endregion map-hist
