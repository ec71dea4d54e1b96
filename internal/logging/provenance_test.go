package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/confusion"
	"github.com/danielpatrickdp/cutscan/internal/cut"
	"github.com/danielpatrickdp/cutscan/internal/event"
	"github.com/danielpatrickdp/cutscan/internal/grid"
	"github.com/danielpatrickdp/cutscan/internal/scan"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

// #region helpers
func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func savedRun(t *testing.T, s *store.Store, labels []bool) (store.Run, *scan.Outcome) {
	t.Helper()
	src := &event.SliceSource{}
	for i, l := range labels {
		src.Records = append(src.Records, event.FromMap(map[string]float64{"score": float64(i + 1)}, l))
	}
	ax, err := grid.NewAxis("score", grid.Spec{Low: 0, High: float64(len(labels)), Step: 1})
	require.NoError(t, err)
	job := scan.Job{
		Name:      "below",
		Predicate: cut.Below,
		Variables: []classifier.Source{{Feature: "score"}},
		Axes:      []grid.Axis{ax},
	}
	out, err := scan.Run(context.Background(), src, nil, job, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	run, cands := store.RunFromOutcome(out, []byte(`{}`))
	run, err = s.SaveRun(run, cands)
	require.NoError(t, err)
	return run, out
}

// #endregion helpers

// #region log-selection-tests
func TestLogSelection(t *testing.T) {
	s := setupStore(t)
	run, out := savedRun(t, s, []bool{true, true, false, true})

	entry := EntryFor(run, out)
	entry.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, LogSelection(s.DB(), entry))

	var decision, reason, counts string
	err := s.DB().QueryRow(`SELECT decision, reason, counts_json FROM provenance_log WHERE run_id = ?`, run.RunID).
		Scan(&decision, &reason, &counts)
	require.NoError(t, err)
	assert.Equal(t, store.StatusSelected, decision)
	assert.True(t, strings.HasPrefix(reason, "score < "), reason)
	assert.Contains(t, reason, "kept the first")

	var c confusion.Counts
	require.NoError(t, json.Unmarshal([]byte(counts), &c))
	assert.Equal(t, out.Result.Counts, c)
}

func TestLogSelectionNoValidCandidate(t *testing.T) {
	s := setupStore(t)
	run, out := savedRun(t, s, []bool{false, false, false})

	entry := EntryFor(run, out)
	assert.Equal(t, store.StatusNoValidCandidate, entry.Decision)
	assert.Nil(t, entry.Counts)
	assert.Contains(t, entry.Reason, "no signal records among 3")

	before := time.Now().UTC()
	require.NoError(t, LogSelection(s.DB(), entry))

	var counts sql.NullString
	var created string
	err := s.DB().QueryRow(`SELECT counts_json, created_at FROM provenance_log`).Scan(&counts, &created)
	require.NoError(t, err)
	assert.False(t, counts.Valid)
	at, err := time.Parse(time.RFC3339Nano, created)
	require.NoError(t, err)
	assert.False(t, at.Before(before), "created_at is filled in")
}

func TestSelectionsRoundTrip(t *testing.T) {
	s := setupStore(t)
	run, out := savedRun(t, s, []bool{true, false, true})
	entry := EntryFor(run, out)
	require.NoError(t, LogSelection(s.DB(), entry))

	got, err := Selections(s.DB(), run.RunID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.Reason, got[0].Reason)
	assert.Equal(t, run.ConfigHash, got[0].ConfigHash)
	require.NotNil(t, got[0].Counts)
	assert.Equal(t, *entry.Counts, *got[0].Counts)
	assert.False(t, got[0].CreatedAt.IsZero())

	none, err := Selections(s.DB(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLogSelectionUnknownRun(t *testing.T) {
	s := setupStore(t)
	err := LogSelection(s.DB(), SelectionEntry{RunID: "ghost", TieBreak: "first", Decision: "selected"})
	require.Error(t, err)
}

func TestLogSelectionClosedDB(t *testing.T) {
	s := setupStore(t)
	db := s.DB()
	require.NoError(t, db.Close())
	require.Error(t, LogSelection(db, SelectionEntry{RunID: "x", TieBreak: "first", Decision: "selected"}))
}

// #endregion log-selection-tests

// #region logger-tests
func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", FormatJSON)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "job", "chisq")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "chisq", line["job"])

	_, err = NewLogger(&buf, "loud", FormatText)
	assert.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "hello", nullIfEmpty("hello"))
}

// #endregion logger-tests
