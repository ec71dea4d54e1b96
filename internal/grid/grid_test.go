package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFloat(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func fmtCuts(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return strings.Join(parts, " ")
}

func TestGenerateDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/generate", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "generate":
			var s Spec
			for _, arg := range d.CmdArgs {
				v := parseFloat(t, arg.Vals[0])
				switch arg.Key {
				case "low":
					s.Low = v
				case "high":
					s.High = v
				case "step":
					s.Step = v
				default:
					d.Fatalf(t, "unknown arg %s", arg.Key)
				}
			}
			cuts, err := s.Generate()
			if err != nil {
				return fmt.Sprintf("error: %v\n", err)
			}
			if len(cuts) > 8 {
				return fmt.Sprintf("count=%d first=%.6g last=%.6g\n", len(cuts), cuts[0], cuts[len(cuts)-1])
			}
			return fmt.Sprintf("count=%d\n%s\n", len(cuts), fmtCuts(cuts))
		default:
			return fmt.Sprintf("unknown command: %s", d.Cmd)
		}
	})
}

func TestCrossDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/cross", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "cross":
			var axes []Axis
			for _, arg := range d.CmdArgs {
				var (
					a   Axis
					err error
				)
				switch len(arg.Vals) {
				case 1:
					a, err = ListAxis(arg.Key, []float64{parseFloat(t, arg.Vals[0])})
				case 3:
					a, err = NewAxis(arg.Key, Spec{
						Low:  parseFloat(t, arg.Vals[0]),
						High: parseFloat(t, arg.Vals[1]),
						Step: parseFloat(t, arg.Vals[2]),
					})
				default:
					d.Fatalf(t, "axis %s: want 1 or 3 values", arg.Key)
				}
				if err != nil {
					return fmt.Sprintf("error: %v\n", err)
				}
				axes = append(axes, a)
			}
			l, err := Cross(axes...)
			if err != nil {
				return fmt.Sprintf("error: %v\n", err)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "len=%d shape=%v\n", l.Len(), l.Shape())
			if l.Len() <= 16 {
				for i := 0; i < l.Len(); i++ {
					fmt.Fprintf(&b, "%d: %s\n", i, fmtCuts(l.At(i)))
				}
			}
			return b.String()
		default:
			return fmt.Sprintf("unknown command: %s", d.Cmd)
		}
	})
}

func TestCountMatchesFloor(t *testing.T) {
	cases := []Spec{
		{0, 200, 0.01},
		{0, 10, 1},
		{2.5, 3.097, 0.005},
		{3.097, 3.5, 0.005},
		{0, 0.92, 0.01},
		{-0.8, 0.12, 0.01},
		{0, 1, 0.3},
		{-5, 5, 0.7},
		{0, 0.3, 0.1},
		{0, 0.7, 0.1},
	}
	for _, s := range cases {
		t.Run(fmt.Sprintf("%g_%g_%g", s.Low, s.High, s.Step), func(t *testing.T) {
			cuts, err := s.Generate()
			require.NoError(t, err)
			require.Equal(t, s.Count(), len(cuts))

			assert.Equal(t, int(math.Floor((s.High-s.Low)/s.Step)), len(cuts))

			// high may exceed last+step when step does not divide the range,
			// or when the quotient rounds below an integer.
			last := cuts[len(cuts)-1]
			assert.Less(t, last, s.High, "last cut must stay below high")
			assert.LessOrEqual(t, last+s.Step, s.High+1e-9, "floor leaves no room for another cut")
			assert.LessOrEqual(t, s.High, last+2*s.Step+1e-9)
		})
	}
}

func TestBoundaryExactDivision(t *testing.T) {
	for _, s := range []Spec{{0, 200, 0.01}, {0, 10, 1}, {0, 0.92, 0.01}, {0, 1, 0.25}} {
		cuts, err := s.Generate()
		require.NoError(t, err)
		last := cuts[len(cuts)-1]
		assert.Less(t, last, s.High)
		assert.InDelta(t, s.High, last+s.Step, 1e-9)
	}
}

func TestCountDropsCutBelowInteger(t *testing.T) {
	s := Spec{Low: 0, High: 0.3, Step: 0.1}
	cuts, err := s.Generate()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.1}, cuts)
	assert.Equal(t, 6, Spec{Low: 0, High: 0.7, Step: 0.1}.Count())
}

func TestGenerateMultipliesInsteadOfAccumulating(t *testing.T) {
	s := Spec{Low: 0, High: 200, Step: 0.01}
	cuts, err := s.Generate()
	require.NoError(t, err)
	for _, i := range []int{0, 1, 777, 12345, 19999} {
		assert.Equal(t, s.Low+float64(i)*s.Step, cuts[i])
	}
}

func TestCrossKeepsDegenerateCandidates(t *testing.T) {
	left, err := NewAxis("left", Spec{Low: 0, High: 4, Step: 1})
	require.NoError(t, err)
	right, err := NewAxis("right", Spec{Low: 2, High: 5, Step: 1})
	require.NoError(t, err)

	l, err := Cross(left, right)
	require.NoError(t, err)
	require.Equal(t, len(left.Cuts)*len(right.Cuts), l.Len())
	require.Equal(t, 2, l.Arity())

	degenerate := 0
	for i := 0; i < l.Len(); i++ {
		b := l.At(i)
		c := l.Coords(i)
		assert.Equal(t, left.Cuts[c[0]], b[0])
		assert.Equal(t, right.Cuts[c[1]], b[1])
		if b[0] >= b[1] {
			degenerate++
		}
	}
	// (2,2) (3,2) (3,3)
	assert.Equal(t, 3, degenerate)
}

func TestCrossRejectsEmptyAxis(t *testing.T) {
	_, err := Cross()
	require.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Cross(Axis{Name: "x"})
	require.ErrorIs(t, err, ErrInvalidGrid)
	_, err = ListAxis("x", nil)
	require.ErrorIs(t, err, ErrInvalidGrid)
	_, err = ListAxis("x", []float64{math.Inf(1)})
	require.ErrorIs(t, err, ErrInvalidGrid)
}
