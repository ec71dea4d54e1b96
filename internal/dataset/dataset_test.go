package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

func sampleRecords() []event.Record {
	rows := []struct {
		chisq, sqrtS float64
		signal       bool
	}{
		{3.5, 3.097, true},
		{40.25, 2.8, false},
		{12, 3.1, true},
		{150.5, 3.4, false},
	}
	out := make([]event.Record, len(rows))
	for i, r := range rows {
		out[i] = event.FromMap(map[string]float64{"chisq4C": r.chisq, "sqrt_s": r.sqrtS}, r.signal)
	}
	return out
}

func collect(t *testing.T, src event.Source) []event.Record {
	t.Helper()
	var out []event.Record
	require.NoError(t, src.Scan(context.Background(), func(r event.Record) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestRoundTripAllFormats(t *testing.T) {
	for _, ext := range []string{".root", ".csv", ".db"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events"+ext)
			want := sampleRecords()
			require.NoError(t, Write(path, Options{}, want))

			src, err := Open(Options{Path: path}, nil)
			require.NoError(t, err)

			// two passes must see the same records
			for pass := 0; pass < 2; pass++ {
				got := collect(t, src)
				require.Len(t, got, len(want))
				for i := range want {
					assert.Equal(t, want[i].Signal(), got[i].Signal(), "record %d", i)
					assert.Equal(t, want[i].Fields(), got[i].Fields(), "record %d", i)
				}
			}
		})
	}
}

func TestFieldProjection(t *testing.T) {
	for _, ext := range []string{".root", ".csv", ".sqlite"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events"+ext)
			require.NoError(t, Write(path, Options{}, sampleRecords()))

			src, err := Open(Options{Path: path, Fields: []string{"sqrt_s"}}, nil)
			require.NoError(t, err)
			got := collect(t, src)
			require.Len(t, got, 4)
			assert.Equal(t, map[string]float64{"sqrt_s": 3.097}, got[0].Fields())

			_, err = Open(Options{Path: path, Fields: []string{"nope"}}, nil)
			require.True(t, errors.Is(err, ErrDatasetUnavailable))
		})
	}
}

func TestOpenMissingInput(t *testing.T) {
	_, err := Open(Options{Path: filepath.Join(t.TempDir(), "absent.root")}, nil)
	require.True(t, errors.Is(err, ErrDatasetUnavailable))

	path := filepath.Join(t.TempDir(), "events.parquet")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err = Open(Options{Path: path}, nil)
	require.True(t, errors.Is(err, ErrDatasetUnavailable))
}

func TestOpenWrongTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.root")
	require.NoError(t, Write(path, Options{}, sampleRecords()))
	_, err := Open(Options{Path: path, Tree: "ntp2"}, nil)
	require.True(t, errors.Is(err, ErrDatasetUnavailable))
}

func TestCSVMissingLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("chisq4C,sqrt_s\n1,2\n"), 0o644))
	_, err := Open(Options{Path: path}, nil)
	require.True(t, errors.Is(err, ErrDatasetUnavailable))
}

func TestCSVBadLabelAbortsScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	body := "mcSignal,chisq4C\n1,3\n0,4\n2,5\n1,6\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	src, err := Open(Options{Path: path}, nil)
	require.NoError(t, err)
	seen := 0
	err = src.Scan(context.Background(), func(event.Record) error {
		seen++
		return nil
	})
	require.True(t, errors.Is(err, event.ErrBadLabel))
	assert.Equal(t, 2, seen)
}

func TestSQLiteTableName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	recs := []event.Record{
		event.FromMap(map[string]float64{"x": 1}, true),
	}
	require.NoError(t, Write(path, Options{Table: "ntp1"}, recs))

	_, err := Open(Options{Path: path}, nil)
	require.True(t, errors.Is(err, ErrDatasetUnavailable), "default table is events")

	src, err := Open(Options{Path: path, Table: "ntp1"}, nil)
	require.NoError(t, err)
	got := collect(t, src)
	require.Len(t, got, 1)
	assert.True(t, got[0].Signal())
}

func TestScanHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, Write(path, Options{}, sampleRecords()))
	src, err := Open(Options{Path: path}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = src.Scan(ctx, func(event.Record) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFromName(t *testing.T) {
	cases := map[string]Options{
		"data/mc.root:ntp1":    {Path: "data/mc.root", Tree: "ntp1"},
		"runs/events.db:cands": {Path: "runs/events.db", Table: "cands"},
		"data/mc.csv":          {Path: "data/mc.csv"},
		"C:/data/mc.csv":       {Path: "C:/data/mc.csv"},
		"memory":               {Path: "memory"},
	}
	for name, want := range cases {
		assert.Equal(t, want, OptionsFromName(name), name)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.root")
	require.NoError(t, Write(path, Options{}, sampleRecords()))
	src, err := Open(Options{Path: path}, nil)
	require.NoError(t, err)
	back, err := Open(OptionsFromName(src.Name()), nil)
	require.NoError(t, err)
	assert.Len(t, collect(t, back), 4)
}
