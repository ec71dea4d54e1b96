package event

import (
	"math"

	"github.com/cockroachdb/errors"
	"go-hep.org/x/hep/fmom"
)

// Derived quantities computable from the constrained-fit four-momenta.
const (
	ComEnergy   = "com_energy"
	MissingMass = "miss_mass"
)

// JPsiMass is the recoil mass used by the missing-mass hypothesis, in GeV.
const JPsiMass = 3.097

// Particle branch prefixes of the 4C kinematic fit.
const (
	Proton     = "if4CPp"
	AntiProton = "if4CPm"
	Photon     = "if4Cgamma"
)

// #region four-momentum
// Mass is the invariant mass of p, NaN for space-like vectors.
func Mass(p fmom.P4) float64 {
	m2 := p.M2()
	if m2 < 0 {
		return math.NaN()
	}
	return math.Sqrt(m2)
}

// Momentum reads prefix_px, prefix_py, prefix_pz and prefix_e from r.
func Momentum(r Record, prefix string) (fmom.PxPyPzE, error) {
	var c [4]float64
	if r.schema == nil {
		return fmom.PxPyPzE{}, errors.Wrapf(ErrUnknownField, "%q", prefix+"_px")
	}
	for k, suffix := range []string{"_px", "_py", "_pz", "_e"} {
		i, ok := r.schema.index[prefix+suffix]
		if !ok {
			return fmom.PxPyPzE{}, errors.Wrapf(ErrUnknownField, "%q", prefix+suffix)
		}
		c[k] = r.values[i]
	}
	return fmom.NewPxPyPzE(c[0], c[1], c[2], c[3]), nil
}

// #endregion four-momentum

// #region derived
type derivation struct {
	inputs []string
	eval   func(Record) (float64, error)
}

func momentumFields(prefixes ...string) []string {
	var out []string
	for _, p := range prefixes {
		out = append(out, p+"_px", p+"_py", p+"_pz", p+"_e")
	}
	return out
}

var derived = map[string]derivation{
	ComEnergy: {
		inputs: momentumFields(Proton, AntiProton, Photon),
		eval:   comEnergy,
	},
	MissingMass: {
		inputs: momentumFields(Proton, AntiProton),
		eval:   missingMass,
	},
}

// comEnergy is sqrt(s) of the p pbar gamma final state.
func comEnergy(r Record) (float64, error) {
	var sum fmom.P4
	for _, prefix := range []string{Proton, AntiProton, Photon} {
		p, err := Momentum(r, prefix)
		if err != nil {
			return math.NaN(), err
		}
		if sum == nil {
			sum = &p
			continue
		}
		sum = fmom.Add(sum, &p)
	}
	return Mass(sum), nil
}

// missingMass assumes head-on beams and a J/psi recoiling against the pair.
func missingMass(r Record) (float64, error) {
	p, err := Momentum(r, Proton)
	if err != nil {
		return math.NaN(), err
	}
	m, err := Momentum(r, AntiProton)
	if err != nil {
		return math.NaN(), err
	}
	sum := fmom.Add(&p, &m)
	recoil := fmom.NewPxPyPzE(sum.Px(), sum.Py(), sum.Pz(), sum.E()-JPsiMass)
	return Mass(&recoil), nil
}

// IsDerived reports whether name is a derived quantity.
func IsDerived(name string) bool {
	_, ok := derived[name]
	return ok
}

// Requires lists the raw fields needed to resolve name: the name itself for
// a raw field, the four-momentum components for a derived one.
func Requires(name string) []string {
	if d, ok := derived[name]; ok {
		return append([]string(nil), d.inputs...)
	}
	return []string{name}
}

// #endregion derived
