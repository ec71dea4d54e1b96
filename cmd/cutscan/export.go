package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cutscan/internal/dataset"
	"github.com/danielpatrickdp/cutscan/internal/replay"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

var exportConfig struct {
	db      string
	run     string
	out     string
	fixture string
	input   string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "dump a stored candidate table as CSV, or a run as a replay fixture",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportConfig.db, "db", "", "SQLite run store")
	f.StringVar(&exportConfig.run, "run", "", "stored run id")
	f.StringVar(&exportConfig.out, "out", "", "CSV file (default stdout)")
	f.StringVar(&exportConfig.fixture, "fixture", "", "write a replay fixture JSON instead of CSV")
	f.StringVar(&exportConfig.input, "input", "", "dataset the fixture records are read from (default: the stored dataset)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	if exportConfig.db == "" || exportConfig.run == "" {
		return usageError("--db and --run are required")
	}
	st, err := store.NewStore(exportConfig.db)
	if err != nil {
		return err
	}
	defer st.Close()
	run, err := st.GetRun(exportConfig.run)
	if err != nil {
		return err
	}
	if exportConfig.fixture != "" {
		return exportFixture(cmd, run)
	}
	cands, err := st.Candidates(run.RunID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if exportConfig.out != "" && exportConfig.out != "-" {
		f, err := os.Create(exportConfig.out)
		if err != nil {
			return errors.Wrap(err, "create export")
		}
		defer f.Close()
		w = f
		if err := writeCandidates(w, cands); err != nil {
			return err
		}
		return f.Close()
	}
	return writeCandidates(w, cands)
}

// #region csv
// writeCandidates writes one row per candidate in scan order. Floats use
// the shortest representation that reads back exactly.
func writeCandidates(w io.Writer, cands []store.Candidate) error {
	cw := csv.NewWriter(w)
	arity := 0
	if len(cands) > 0 {
		arity = len(cands[0].Cut)
	}
	header := []string{"index"}
	for k := 0; k < arity; k++ {
		header = append(header, "cut_"+strconv.Itoa(k))
	}
	header = append(header, "true_pos", "false_pos", "true_neg", "false_neg",
		"significance", "signal_efficiency", "background_rejection", "signal_to_background", "rankable")
	if err := cw.Write(header); err != nil {
		return err
	}
	exact := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, c := range cands {
		row := []string{strconv.Itoa(c.Index)}
		for _, v := range c.Cut {
			row = append(row, exact(v))
		}
		row = append(row,
			strconv.FormatInt(c.Counts.TruePos, 10), strconv.FormatInt(c.Counts.FalsePos, 10),
			strconv.FormatInt(c.Counts.TrueNeg, 10), strconv.FormatInt(c.Counts.FalseNeg, 10),
			exact(c.Stats.Significance), exact(c.Stats.SignalEfficiency),
			exact(c.Stats.BackgroundRejection), exact(c.Stats.SignalToBackground),
			strconv.FormatBool(c.Stats.Rankable))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// #endregion csv

// #region fixture
func exportFixture(cmd *cobra.Command, run store.Run) error {
	logger, err := newLogger("", "")
	if err != nil {
		return err
	}
	opts := dataset.OptionsFromName(run.Dataset)
	if exportConfig.input != "" {
		opts = dataset.Options{Path: exportConfig.input}
	}
	src, err := dataset.Open(opts, logger)
	if err != nil {
		return err
	}
	f, err := replay.FixtureFromRun(cmd.Context(), run, src)
	if err != nil {
		return err
	}
	if err := replay.WriteFixture(exportConfig.fixture, f); err != nil {
		return err
	}
	logger.Info("fixture written", "path", exportConfig.fixture, "records", len(f.Records))
	return nil
}

// #endregion fixture
