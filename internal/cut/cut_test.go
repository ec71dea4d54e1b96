package cut

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, s := range []string{"below", "ABOVE", " interval ", "box"} {
		_, err := Parse(s)
		require.NoError(t, err, s)
	}
	_, err := Parse("window")
	require.ErrorIs(t, err, ErrUnknownPredicate)
}

func TestShape(t *testing.T) {
	assert.Equal(t, 1, Below.Arity())
	assert.Equal(t, 1, Above.Arity())
	assert.Equal(t, 2, Interval.Arity())
	assert.Equal(t, 3, Box.Arity())
	assert.Equal(t, 1, Interval.Inputs())
	assert.Equal(t, 2, Box.Inputs())
}

func TestAcceptBoundaries(t *testing.T) {
	cases := []struct {
		p      Predicate
		obs    []float64
		bounds []float64
		want   bool
	}{
		{Below, []float64{4.9}, []float64{5}, true},
		{Below, []float64{5}, []float64{5}, false},
		{Above, []float64{5}, []float64{5}, false},
		{Above, []float64{5.1}, []float64{5}, true},
		{Interval, []float64{3}, []float64{3, 4}, true},
		{Interval, []float64{4}, []float64{3, 4}, true},
		{Interval, []float64{4.0001}, []float64{3, 4}, false},
		{Interval, []float64{3}, []float64{3, 3}, true},
		{Box, []float64{3.1, 15}, []float64{3.065, 3.112, 15.94}, true},
		{Box, []float64{3.1, 15.94}, []float64{3.065, 3.112, 15.94}, false},
		{Box, []float64{3.2, 1}, []float64{3.065, 3.112, 15.94}, false},
		{Below, []float64{math.NaN()}, []float64{5}, false},
		{Above, []float64{math.NaN()}, []float64{5}, false},
		{Interval, []float64{math.NaN()}, []float64{0, 5}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.p.Accept(c.obs, c.bounds), "%s %v %v", c.p, c.obs, c.bounds)
	}
}

func TestEmpty(t *testing.T) {
	assert.False(t, Below.Empty([]float64{0}))
	assert.False(t, Interval.Empty([]float64{1, 2}))
	assert.True(t, Interval.Empty([]float64{2, 2}))
	assert.True(t, Interval.Empty([]float64{3, 2}))
	assert.True(t, Box.Empty([]float64{3, 2, 10}))
}

func TestPermissiveImpliesAccept(t *testing.T) {
	obs := []float64{-1, 0, 0.5, 1, 2.5, 3}
	regions := map[Predicate][][]float64{
		Below:    {{0}, {1}, {2.5}},
		Above:    {{-2}, {0.5}, {2}},
		Interval: {{0, 3}, {0.5, 2.5}, {1, 1}},
	}
	for p, rs := range regions {
		for _, a := range rs {
			for _, b := range rs {
				if !p.Permissive(a, b) {
					continue
				}
				for _, x := range obs {
					if p.Accept([]float64{x}, b) {
						assert.True(t, p.Accept([]float64{x}, a), "%s: %v ⊇ %v at %g", p, a, b, x)
					}
				}
			}
		}
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "chisq4C < 24.5", Below.Describe([]string{"chisq4C"}, []float64{24.5}))
	assert.Equal(t, "3.065 <= sqrt_s <= 3.112 && chisq4C < 15.94",
		Box.Describe([]string{"sqrt_s", "chisq4C"}, []float64{3.065, 3.112, 15.94}))
	assert.Equal(t, "2.9 <= x0 <= 3.2", Interval.Describe(nil, []float64{2.9, 3.2}))
}
