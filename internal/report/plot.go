package report

import (
	"image/color"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

var (
	signalColor     = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	backgroundColor = color.RGBA{R: 30, G: 60, B: 200, A: 255}
)

// #region write-plots
// WritePlots renders PNG plots of one scan into dir and returns the files
// written: the significance curve of single-axis scans, and the signal and
// background distributions of every histogram before and after the cut.
func WritePlots(dir string, out *scan.Outcome) ([]string, error) {
	var files []string
	save := func(p *hplot.Plot, name string) error {
		file := filepath.Join(dir, out.Job.Name+"_"+name+".png")
		if err := p.Save(6*vg.Inch, 4*vg.Inch, file); err != nil {
			return errors.Wrapf(err, "save %s", file)
		}
		files = append(files, file)
		return nil
	}

	if out.Table.Lattice.Arity() == 1 {
		c := eval.SignificanceCurve(out.Table, out.Stats)
		p, err := curvePlot(c, out.Job.Axes[0].Name, "S/sqrt(S+B)")
		if err != nil {
			return files, err
		}
		p.Title.Text = out.Job.Name + ": significance"
		if err := save(p, "significance"); err != nil {
			return files, err
		}
	}

	for _, hs := range out.Histograms {
		p := stackPlot(hs, false)
		if err := save(p, hs.Spec.Name); err != nil {
			return files, err
		}
		if out.Passes < 2 {
			continue
		}
		p = stackPlot(hs, true)
		if err := save(p, hs.Spec.Name+"_after"); err != nil {
			return files, err
		}
	}
	return files, nil
}

// #endregion write-plots

// #region plot-builders
func curvePlot(c eval.Curve, xlabel, ylabel string) (*hplot.Plot, error) {
	xys := make(plotter.XYs, len(c.X))
	for i := range c.X {
		xys[i].X = c.X[i]
		xys[i].Y = c.Y[i]
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, errors.Wrapf(err, "curve %s", c.Name)
	}
	line.LineStyle.Color = signalColor

	p := hplot.New()
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(line, hplot.NewGrid())
	return p, nil
}

func stackPlot(hs *scan.HistSet, after bool) *hplot.Plot {
	sig, bkg := hs.Signal, hs.Background
	title := hs.Spec.Variable
	if after {
		sig, bkg = hs.AcceptedSignal, hs.AcceptedBackground
		title += " after cut"
	}

	p := hplot.New()
	p.Title.Text = title
	p.X.Label.Text = hs.Spec.Variable
	p.Y.Label.Text = "events"
	p.Title.Padding = 2 * vg.Millimeter
	p.Legend.Top = true

	hb := hplot.NewH1D(bkg)
	hb.LineStyle.Color = backgroundColor
	hs1 := hplot.NewH1D(sig)
	hs1.LineStyle.Color = signalColor
	hs1.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(hb, hs1)
	p.Legend.Add("background", hb)
	p.Legend.Add("signal", hs1)
	return p
}

// #endregion plot-builders
