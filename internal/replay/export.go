package replay

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/config"
	"github.com/danielpatrickdp/cutscan/internal/event"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

// #region export
// FixtureFromRun pins a stored run as a fixture: the job it ran, the records
// of src restricted to the fields the job reads, and the stored selection.
// Runs over model outputs cannot be exported since fixtures carry no models.
func FixtureFromRun(ctx context.Context, run store.Run, src event.Source) (Fixture, error) {
	jc, err := config.ParseJobJSON([]byte(run.ConfigJSON))
	if err != nil {
		return Fixture{}, errors.Wrapf(err, "run %s", run.RunID)
	}
	job, err := jc.Job()
	if err != nil {
		return Fixture{}, errors.Wrapf(err, "run %s", run.RunID)
	}
	fields, all := job.Fields()
	if all || len(job.Variables) == 0 {
		return Fixture{}, errors.Newf("run %s scores a model and cannot be exported as a fixture", run.RunID)
	}
	for _, v := range job.Variables {
		if len(v.Inputs) > 0 {
			return Fixture{}, errors.Newf("run %s scores a model and cannot be exported as a fixture", run.RunID)
		}
	}

	f := Fixture{
		Description: run.Job + " " + run.RunID,
		Job:         jc,
		Expected:    FixtureExpected{Status: run.Status},
	}
	if b := run.Best; b != nil {
		f.Expected.Index = b.Index
		f.Expected.Cut = b.Cut
		f.Expected.Significance = b.Stats.Significance
		f.Expected.TruePos = b.Counts.TruePos
		f.Expected.FalsePos = b.Counts.FalsePos
	}
	err = src.Scan(ctx, func(rec event.Record) error {
		row := FixtureRecord{Fields: make(map[string]float64, len(fields))}
		if rec.Signal() {
			row.Label = 1
		}
		for _, name := range fields {
			v, err := rec.Value(name)
			if err != nil {
				return err
			}
			row.Fields[name] = v
		}
		f.Records = append(f.Records, row)
		return nil
	})
	if err != nil {
		return Fixture{}, errors.Wrapf(err, "read %s", src.Name())
	}
	return f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal fixture")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write fixture %s", path)
	}
	return nil
}

// #endregion export
