package toymc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

func sample(t *testing.T, n int, seed uint64, fraction float64) []event.Record {
	t.Helper()
	opts := DefaultOptions()
	opts.Events, opts.Seed, opts.SignalFraction = n, seed, fraction
	recs, err := Generate(opts)
	require.NoError(t, err)
	require.Len(t, recs, n)
	return recs
}

func TestRepeatable(t *testing.T) {
	a := sample(t, 200, 7, 0.3)
	b := sample(t, 200, 7, 0.3)
	c := sample(t, 200, 8, 0.3)
	for i := range a {
		assert.Equal(t, a[i].Fields(), b[i].Fields())
		assert.Equal(t, a[i].Signal(), b[i].Signal())
	}
	assert.NotEqual(t, a[0].Fields(), c[0].Fields())
}

func TestKinematicsClose(t *testing.T) {
	for _, r := range sample(t, 500, 3, 0.5) {
		sqrtS, err := r.Value(SqrtS)
		require.NoError(t, err)
		com, err := r.Value(event.ComEnergy)
		require.NoError(t, err)
		assert.InDelta(t, sqrtS, com, 1e-9)

		for _, prefix := range []string{event.Proton, event.AntiProton} {
			p, err := event.Momentum(r, prefix)
			require.NoError(t, err)
			assert.InDelta(t, ProtonMass, event.Mass(&p), 1e-6)
		}
		g, err := event.Momentum(r, event.Photon)
		require.NoError(t, err)
		assert.InDelta(t, 0, g.M2(), 1e-9)
		assert.GreaterOrEqual(t, g.E(), 0.0)
	}
}

func TestSignalShape(t *testing.T) {
	recs := sample(t, 20000, 11, 0.2)
	var nsig int
	var sumSig, sumChiSig, sumChiBkg float64
	for _, r := range recs {
		s, _ := r.Value(SqrtS)
		chi, _ := r.Value(Chisq)
		assert.GreaterOrEqual(t, chi, 0.0)
		if r.Signal() {
			nsig++
			sumSig += s
			sumChiSig += chi
			continue
		}
		assert.True(t, s >= EnergyMin && s < EnergyMax, "background sqrt_s %g", s)
		sumChiBkg += chi
	}
	nbkg := len(recs) - nsig
	assert.InDelta(t, 0.2, float64(nsig)/float64(len(recs)), 0.02)
	assert.InDelta(t, event.JPsiMass, sumSig/float64(nsig), 0.002)
	assert.InDelta(t, 4, sumChiSig/float64(nsig), 0.3)
	assert.InDelta(t, 40, sumChiBkg/float64(nbkg), 2)
}

func TestAllBackground(t *testing.T) {
	for _, r := range sample(t, 100, 5, 0) {
		assert.False(t, r.Signal())
	}
}

func TestInvalidOptions(t *testing.T) {
	for name, opts := range map[string]Options{
		"no events":      {Events: 0, SignalFraction: 0.1},
		"fraction above": {Events: 10, SignalFraction: 1.5},
		"fraction nan":   {Events: 10, SignalFraction: math.NaN()},
		"negative chi":   {Events: 10, SignalFraction: 0.1, BackgroundChisqMean: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Generate(opts)
			assert.Error(t, err)
		})
	}
}

func TestFields(t *testing.T) {
	f := Fields()
	assert.Len(t, f, 14)
	assert.Equal(t, []string{SqrtS, Chisq, "if4CPp_px"}, f[:3])
	assert.Equal(t, "if4Cgamma_e", f[13])
}
