package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/confusion"
	"github.com/danielpatrickdp/cutscan/internal/cut"
	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/event"
	"github.com/danielpatrickdp/cutscan/internal/grid"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func outcome(t *testing.T, labels []bool) *scan.Outcome {
	t.Helper()
	src := &event.SliceSource{Label: "mem"}
	for i, l := range labels {
		src.Records = append(src.Records, event.FromMap(map[string]float64{"score": float64(i + 1)}, l))
	}
	ax, err := grid.NewAxis("score", grid.Spec{Low: 0, High: 10, Step: 1})
	require.NoError(t, err)
	job := scan.Job{
		Name:      "below",
		Predicate: cut.Below,
		Variables: []classifier.Source{{Feature: "score"}},
		Axes:      []grid.Axis{ax},
	}
	out, err := scan.Run(context.Background(), src, nil, job, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return out
}

func TestSaveAndGetRun(t *testing.T) {
	s := tempDB(t)
	out := outcome(t, []bool{true, true, true, false, false, true, false, false, false, false})
	run, cands := RunFromOutcome(out, []byte(`{"name":"below"}`))
	require.Len(t, cands, 10)
	require.NotNil(t, run.Best)
	assert.Equal(t, StatusSelected, run.Status)
	assert.Equal(t, "first", run.TieBreak)

	saved, err := s.SaveRun(run, cands)
	require.NoError(t, err)
	require.NotEmpty(t, saved.RunID)

	got, err := s.GetRun(saved.RunID)
	require.NoError(t, err)
	assert.Equal(t, "below", got.Job)
	assert.Equal(t, "mem", got.Dataset)
	assert.Equal(t, ConfigHash([]byte(`{"name":"below"}`)), got.ConfigHash)
	assert.Equal(t, int64(4), got.TotalSignal)
	assert.Equal(t, int64(6), got.TotalBackground)
	require.NotNil(t, got.Best)
	assert.Equal(t, 4, got.Best.Index)
	assert.Equal(t, []float64{4}, got.Best.Cut)
	assert.Equal(t, out.Result.Stats, got.Best.Stats, "S/B of +Inf survives the round trip")
	assert.True(t, math.IsInf(got.Best.Stats.SignalToBackground, 1))
	assert.WithinDuration(t, saved.CreatedAt, got.CreatedAt, time.Microsecond)

	all, err := s.Candidates(saved.RunID)
	require.NoError(t, err)
	require.Len(t, all, 10)
	for i, c := range all {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, out.Table.Counts[i], c.Counts)
		assert.Equal(t, out.Stats[i], c.Stats)
	}
}

func TestSaveNoValidCandidate(t *testing.T) {
	s := tempDB(t)
	run, cands := RunFromOutcome(outcome(t, make([]bool, 10)), []byte(`{}`))
	assert.Nil(t, run.Best)
	assert.Equal(t, StatusNoValidCandidate, run.Status)

	saved, err := s.SaveRun(run, cands)
	require.NoError(t, err)
	got, err := s.GetRun(saved.RunID)
	require.NoError(t, err)
	assert.Nil(t, got.Best)
	assert.Equal(t, StatusNoValidCandidate, got.Status)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		_, err := s.SaveRun(Run{RunID: id, Job: "j", Status: StatusNoValidCandidate, TieBreak: "first",
			CreatedAt: base.Add(time.Duration(i) * time.Minute)}, nil)
		require.NoError(t, err)
	}
	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].RunID)
	assert.Equal(t, "r2", runs[1].RunID)
}

func TestListRunsSubSecond(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	for _, r := range []struct {
		id string
		at time.Time
	}{
		{"older", base.Add(100 * time.Millisecond)},
		{"newer", base.Add(120 * time.Millisecond)},
		{"newest", base.Add(time.Second)},
	} {
		_, err := s.SaveRun(Run{RunID: r.id, Job: "j", Status: StatusNoValidCandidate, TieBreak: "first", CreatedAt: r.at}, nil)
		require.NoError(t, err)
	}
	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	assert.Equal(t, []string{"newest", "newer", "older"}, ids)

	got, err := s.GetRun("newer")
	require.NoError(t, err)
	assert.True(t, base.Add(120*time.Millisecond).Equal(got.CreatedAt))
}

func TestListRunsSameInstantKeepsInsertOrder(t *testing.T) {
	s := tempDB(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b"} {
		_, err := s.SaveRun(Run{RunID: id, Job: "j", Status: StatusNoValidCandidate, TieBreak: "first", CreatedAt: at}, nil)
		require.NoError(t, err)
	}
	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
}

func TestGetRunNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetRun("nonexistent-id")
	require.True(t, errors.Is(err, ErrRunNotFound))
}

func TestDuplicateRunRollsBack(t *testing.T) {
	s := tempDB(t)
	cands := []Candidate{{Index: 0, Cut: []float64{1}, Counts: confusion.Counts{TruePos: 1}}}
	_, err := s.SaveRun(Run{RunID: "dup", Status: StatusSelected, TieBreak: "first"}, cands)
	require.NoError(t, err)
	_, err = s.SaveRun(Run{RunID: "dup", Status: StatusSelected, TieBreak: "first"}, cands)
	require.Error(t, err)

	got, err := s.Candidates("dup")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCandidateNeedsRun(t *testing.T) {
	s := tempDB(t)
	_, err := s.DB().Exec(`INSERT INTO scan_candidates (run_id, idx, cut, true_pos, false_pos, true_neg,
		false_neg, significance, signal_efficiency, background_rejection, rankable)
		VALUES ('ghost', 0, x'', 0, 0, 0, 0, 0, 0, 0, 0)`)
	require.Error(t, err, "foreign keys are enforced")
}

func TestCutEncodingIsBitExact(t *testing.T) {
	in := []float64{0.1 + 0.2, math.Nextafter(3.097, 4), math.Copysign(0, -1), 1e-300}
	out := decodeCut(encodeCut(in))
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, math.Float64bits(in[i]), math.Float64bits(out[i]))
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	require.Error(t, err)
}

func TestClosedDB(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.SaveRun(Run{}, nil)
	assert.Error(t, err)
	_, err = s.ListRuns(10)
	assert.Error(t, err)
	_, err = s.Candidates("x")
	assert.Error(t, err)
}

func TestNewStoreWithDB(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)

	s := NewStoreWithDB(db)
	_, err = s.SaveRun(Run{RunID: "mem", Status: StatusSelected, TieBreak: string(eval.TieLast)}, nil)
	require.NoError(t, err)
}
