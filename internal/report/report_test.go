package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/cut"
	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/event"
	"github.com/danielpatrickdp/cutscan/internal/grid"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

func runScan(t *testing.T, name string, p cut.Predicate, labels []bool, specs ...grid.Spec) *scan.Outcome {
	t.Helper()
	src := &event.SliceSource{Label: "mem"}
	for i, l := range labels {
		src.Records = append(src.Records, event.FromMap(map[string]float64{"score": float64(i + 1)}, l))
	}
	job := scan.Job{
		Name:       name,
		Predicate:  p,
		Variables:  []classifier.Source{{Feature: "score"}},
		Histograms: []scan.HistogramSpec{{Name: "score", Variable: "score", Bins: 10, Min: 0, Max: 11}},
	}
	for i, s := range specs {
		a, err := grid.NewAxis([]string{"lo", "hi"}[i], s)
		require.NoError(t, err)
		job.Axes = append(job.Axes, a)
	}
	out, err := scan.Run(context.Background(), src, nil, job, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return out
}

var tenLabels = []bool{true, true, true, false, false, true, false, false, false, false}

func TestWriteText(t *testing.T) {
	out := runScan(t, "job", cut.Below, tenLabels, grid.Spec{Low: 0, High: 10, Step: 1})
	opts := DefaultOptions()
	opts.TopN = 3
	opts.Latency = &classifier.LatencySummary{Calls: 20, Mean: time.Millisecond, Max: 2 * time.Millisecond}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, out, opts))
	s := buf.String()

	assert.Contains(t, s, "== job: below cut on mem ==")
	assert.Contains(t, s, "records:     10 (signal 4, background 6)")
	assert.Contains(t, s, "best cut:    score < 4 (index 4, tie-break first, 1 tied)")
	assert.Contains(t, s, "S = 3  B = 0")
	assert.Contains(t, s, "signal_to_background   inf")
	assert.Contains(t, s, "top 3 candidates:")
	assert.Contains(t, s, "classifier latency: calls=20")
	assert.Contains(t, s, "significance vs lo")
}

func TestWriteTextNoValidCandidate(t *testing.T) {
	out := runScan(t, "job", cut.Below, make([]bool, 5), grid.Spec{Low: 0, High: 5, Step: 1})
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, out, DefaultOptions()))
	assert.Contains(t, buf.String(), "best cut:    no valid candidate")
	assert.NotContains(t, buf.String(), "top ")
}

func TestRanked(t *testing.T) {
	stats := []eval.Stats{
		{Significance: 1, Rankable: true},
		{Significance: 2, Rankable: true},
		{Significance: 5, Rankable: false},
		{Significance: 2, Rankable: true},
		{Significance: 0, Rankable: true},
	}
	assert.Equal(t, []int{1, 3, 0}, Ranked(stats))
}

func TestDownsampleKeepsPeak(t *testing.T) {
	ys := make([]float64, 1000)
	ys[437] = 9
	got := downsample(ys, 50)
	require.Len(t, got, 50)
	assert.Equal(t, 9.0, got[21])
	assert.Equal(t, ys[:3], downsample(ys[:3], 50))
}

func TestWriteROOT(t *testing.T) {
	one := runScan(t, "job", cut.Below, tenLabels, grid.Spec{Low: 0, High: 10, Step: 1})
	two := runScan(t, "window", cut.Interval, tenLabels, grid.Spec{Low: 0, High: 5, Step: 1}, grid.Spec{Low: 2, High: 8, Step: 1})

	path := filepath.Join(t.TempDir(), "scan.root")
	require.NoError(t, WriteROOT(path, []*scan.Outcome{one, two}))

	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()

	for _, key := range []string{"job_score_all", "job_score_sig_after", "job_significance", "job_ratio", "job_roc"} {
		_, err := f.Get(key)
		assert.NoError(t, err, key)
	}
	obj, err := f.Get("window_significance_map")
	require.NoError(t, err)
	_, ok := obj.(rhist.H2)
	require.True(t, ok, "got %T", obj)

	_, err = f.Get("window_significance")
	assert.Error(t, err, "no 1-D curve for a two-axis scan")
}

func TestWritePlots(t *testing.T) {
	out := runScan(t, "job", cut.Below, tenLabels, grid.Spec{Low: 0, High: 10, Step: 1})
	dir := t.TempDir()
	files, err := WritePlots(dir, out)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.True(t, strings.HasSuffix(f, ".png"))
		st, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}
}
