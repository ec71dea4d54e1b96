package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/config"
	"github.com/danielpatrickdp/cutscan/internal/dataset"
	"github.com/danielpatrickdp/cutscan/internal/replay"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

var replayConfig struct {
	db     string
	run    string
	input  string
	tree   string
	table  string
	label  string
	config string
}

var replayCmd = &cobra.Command{
	Use:   "replay [fixture.json ...]",
	Short: "rerun a stored scan or fixtures and compare bit for bit",
	Long: `Replay rebuilds the job of a stored run, scans the dataset again and
compares the best cut and every candidate with what was stored (--db, --run).
Given fixture files it runs them and checks their expected selection.
Any difference exits non-zero.`,
	Args: cobra.ArbitraryArgs,
	RunE: runReplay,
}

var errReplayMismatch = errors.New("replay mismatch")

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayConfig.db, "db", "", "SQLite run store")
	f.StringVar(&replayConfig.run, "run", "", "stored run id")
	f.StringVar(&replayConfig.input, "input", "", "dataset to rescan (default: the stored dataset)")
	f.StringVar(&replayConfig.tree, "tree", "", "ROOT tree name")
	f.StringVar(&replayConfig.table, "table", "", "SQLite table name")
	f.StringVar(&replayConfig.label, "label", "", "ground-truth column")
	f.StringVar(&replayConfig.config, "config", "", "config file providing the models of model scans")
}

func runReplay(cmd *cobra.Command, args []string) error {
	dbMode := replayConfig.db != "" || replayConfig.run != ""
	switch {
	case dbMode && len(args) > 0:
		return usageError("fixtures cannot be combined with --db/--run")
	case len(args) > 0:
		return replayFixtures(cmd, args)
	case replayConfig.db == "" || replayConfig.run == "":
		return usageError("--db and --run are required, or fixture files")
	}
	return replayRun(cmd)
}

// #region db-mode
func replayRun(cmd *cobra.Command) error {
	logger, err := newLogger("", "")
	if err != nil {
		return err
	}
	st, err := store.NewStore(replayConfig.db)
	if err != nil {
		return err
	}
	defer st.Close()
	run, err := st.GetRun(replayConfig.run)
	if err != nil {
		return err
	}

	opts := dataset.OptionsFromName(run.Dataset)
	if replayConfig.input != "" {
		opts = dataset.Options{Path: replayConfig.input}
	}
	for dst, v := range map[*string]string{
		&opts.Tree:  replayConfig.tree,
		&opts.Table: replayConfig.table,
		&opts.Label: replayConfig.label,
	} {
		if v != "" {
			*dst = v
		}
	}
	src, err := dataset.Open(opts, logger)
	if err != nil {
		return err
	}

	var ev classifier.Evaluator
	if replayConfig.config != "" {
		cfg, err := config.Load(replayConfig.config)
		if err != nil {
			return err
		}
		if ev, err = cfg.Evaluator(); err != nil {
			return err
		}
		if ev != nil {
			defer ev.Close()
		}
	}

	res, err := replay.Rerun(cmd.Context(), st, run.RunID, src, ev, logger)
	if err != nil {
		return err
	}
	return printReplay(cmd.OutOrStdout(), run.RunID, res)
}

// #endregion db-mode

// #region fixture-mode
func replayFixtures(cmd *cobra.Command, paths []string) error {
	logger, err := newLogger("warn", "")
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range paths {
		f, err := replay.LoadFixture(path)
		if err != nil {
			return err
		}
		res, err := replay.RunFixture(cmd.Context(), f, logger)
		if err != nil {
			return errors.Wrapf(err, "fixture %s", path)
		}
		if printReplay(cmd.OutOrStdout(), f.Description, res) != nil {
			failed++
		}
	}
	if failed > 0 {
		return errors.Wrapf(errReplayMismatch, "%d of %d fixtures", failed, len(paths))
	}
	return nil
}

// #endregion fixture-mode

func printReplay(w io.Writer, name string, res replay.Result) error {
	if res.Matched {
		fmt.Fprintf(w, "PASS %s: %s\n", name, res.Outcome.Describe())
		return nil
	}
	fmt.Fprintf(w, "FAIL %s: %d mismatches\n", name, len(res.Mismatches))
	for _, m := range res.Mismatches {
		fmt.Fprintf(w, "  %-24s want %s, got %s\n", m.Field, m.Want, m.Got)
	}
	return errors.Wrapf(errReplayMismatch, "%s", name)
}
