package toymc

import (
	"math"

	"github.com/cockroachdb/errors"
	"go-hep.org/x/hep/fmom"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region generator
// Generator draws labelled p pbar gamma events: signal is a J/psi peak in
// sqrt(s) with a chi2(4) fit quality, background is flat in sqrt(s) with an
// exponential chi2 tail.
type Generator struct {
	opts   Options
	schema *event.Schema

	label  distuv.Bernoulli
	peak   distuv.Normal
	flat   distuv.Uniform
	sigChi distuv.ChiSquared
	bkgChi distuv.Exponential
	unit   distuv.Uniform
}

// NewGenerator validates opts and seeds the distributions from one source.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Events <= 0 {
		return nil, errors.Newf("events must be positive, got %d", opts.Events)
	}
	if opts.SignalFraction < 0 || opts.SignalFraction > 1 || math.IsNaN(opts.SignalFraction) {
		return nil, errors.Newf("signal fraction %g outside [0, 1]", opts.SignalFraction)
	}
	if opts.BackgroundChisqMean == 0 {
		opts.BackgroundChisqMean = DefaultOptions().BackgroundChisqMean
	}
	if opts.BackgroundChisqMean < 0 {
		return nil, errors.Newf("background chi2 mean %g must be positive", opts.BackgroundChisqMean)
	}
	schema, err := event.NewSchema(Fields()...)
	if err != nil {
		return nil, err
	}
	src := rand.NewSource(opts.Seed)
	return &Generator{
		opts:   opts,
		schema: schema,
		label:  distuv.Bernoulli{P: opts.SignalFraction, Src: src},
		peak:   distuv.Normal{Mu: event.JPsiMass, Sigma: PeakWidth, Src: src},
		flat:   distuv.Uniform{Min: EnergyMin, Max: EnergyMax, Src: src},
		sigChi: distuv.ChiSquared{K: 4, Src: src},
		bkgChi: distuv.Exponential{Rate: 1 / opts.BackgroundChisqMean, Src: src},
		unit:   distuv.Uniform{Min: 0, Max: 1, Src: src},
	}, nil
}

// Generate draws opts.Events records.
func Generate(opts Options) ([]event.Record, error) {
	g, err := NewGenerator(opts)
	if err != nil {
		return nil, err
	}
	out := make([]event.Record, g.opts.Events)
	for i := range out {
		if out[i], err = g.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Next draws one record.
func (g *Generator) Next() (event.Record, error) {
	signal := g.label.Rand() == 1
	var sqrtS, chi float64
	if signal {
		sqrtS = g.peak.Rand()
		chi = g.sigChi.Rand()
	} else {
		sqrtS = g.flat.Rand()
		chi = g.bkgChi.Rand()
	}
	p, pbar, gamma := g.decay(sqrtS)

	vals := make([]float64, 0, g.schema.Len())
	vals = append(vals, sqrtS, chi)
	for _, v := range []fmom.P4{p, pbar, gamma} {
		vals = append(vals, v.Px(), v.Py(), v.Pz(), v.E())
	}
	return event.NewRecord(g.schema, vals, signal)
}

// #endregion generator

// #region kinematics
// decay splits a system at rest with mass sqrtS into p pbar gamma. The pair
// mass is drawn uniformly above threshold, the photon recoils isotropically
// and the pair decays isotropically in its own frame.
func (g *Generator) decay(sqrtS float64) (p, pbar, gamma fmom.P4) {
	threshold := 2 * ProtonMass
	mpp := threshold + g.unit.Rand()*(sqrtS-threshold)
	k := (sqrtS*sqrtS - mpp*mpp) / (2 * sqrtS)

	dir := g.direction()
	photon := fmom.NewPxPyPzE(k*dir.X, k*dir.Y, k*dir.Z, k)

	q := math.Sqrt(math.Max(0, mpp*mpp/4-ProtonMass*ProtonMass))
	n := g.direction()
	eCM := mpp / 2
	restP := fmom.NewPxPyPzE(q*n.X, q*n.Y, q*n.Z, eCM)
	restM := fmom.NewPxPyPzE(-q*n.X, -q*n.Y, -q*n.Z, eCM)

	pair := fmom.NewPxPyPzE(-photon.Px(), -photon.Py(), -photon.Pz(), sqrtS-k)
	beta := fmom.BoostOf(&pair)
	return fmom.Boost(&restP, beta), fmom.Boost(&restM, beta), &photon
}

// direction is an isotropic unit vector.
func (g *Generator) direction() r3.Vec {
	cos := 2*g.unit.Rand() - 1
	sin := math.Sqrt(1 - cos*cos)
	phi := 2 * math.Pi * g.unit.Rand()
	return r3.Vec{X: sin * math.Cos(phi), Y: sin * math.Sin(phi), Z: cos}
}

// #endregion kinematics
