package toymc

import "github.com/danielpatrickdp/cutscan/internal/event"

// Physical constants in GeV.
const (
	ProtonMass = 0.938272
	// PeakWidth is the sqrt(s) resolution of the signal peak.
	PeakWidth = 0.012
	EnergyMin = 2.8
	EnergyMax = 3.5
)

// Field names of a generated record.
const (
	SqrtS = "sqrt_s"
	Chisq = "chisq4C"
)

// #region options
// Options control a toy sample. A given seed always yields the same records.
type Options struct {
	Events         int
	Seed           uint64
	SignalFraction float64
	// BackgroundChisqMean is the mean of the exponential background chi2.
	BackgroundChisqMean float64
}

// DefaultOptions returns a small, signal-poor sample.
func DefaultOptions() Options {
	return Options{
		Events:              10000,
		Seed:                1,
		SignalFraction:      0.1,
		BackgroundChisqMean: 40,
	}
}

// #endregion options

// Fields lists the columns of a generated record: sqrt(s), the 4C chi2 and
// the fitted four-momenta of the proton, antiproton and photon.
func Fields() []string {
	out := []string{SqrtS, Chisq}
	for _, p := range []string{event.Proton, event.AntiProton, event.Photon} {
		out = append(out, p+"_px", p+"_py", p+"_pz", p+"_e")
	}
	return out
}
