package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/config"
	"github.com/danielpatrickdp/cutscan/internal/dataset"
	"github.com/danielpatrickdp/cutscan/internal/logging"
	"github.com/danielpatrickdp/cutscan/internal/metrics"
	"github.com/danielpatrickdp/cutscan/internal/report"
	"github.com/danielpatrickdp/cutscan/internal/scan"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

var scanConfig struct {
	config      string
	presets     string
	input       string
	output      string
	rootOut     string
	plots       string
	db          string
	metricsFile string
	parallel    int
	tieBreak    string
	top         int
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "scan cut grids and report the most significant cut",
	Long: `Scan one or more jobs over a labelled dataset. Jobs come from a YAML
config (--config) or from built-in presets (--preset, with --input). A
scan where no candidate qualifies is reported and exits successfully.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanConfig.config, "config", "", "YAML config file")
	f.StringVar(&scanConfig.presets, "preset", "", "comma-separated built-in jobs to run instead of a config (chisq, energy, twodim, ann, bdt)")
	f.StringVar(&scanConfig.input, "input", "", "dataset file (.root, .csv or .db); overrides the config")
	f.StringVarP(&scanConfig.output, "output", "o", "", "text report file (default stdout)")
	f.StringVar(&scanConfig.rootOut, "root-out", "", "ROOT file for histograms and graphs")
	f.StringVar(&scanConfig.plots, "plots", "", "directory for PNG plots")
	f.StringVar(&scanConfig.db, "db", "", "SQLite run store")
	f.StringVar(&scanConfig.metricsFile, "metrics-file", "", "node exporter textfile for batch metrics")
	f.IntVarP(&scanConfig.parallel, "parallel", "p", 0, "jobs scanned concurrently")
	f.StringVar(&scanConfig.tieBreak, "tie-break", "", "override every job's tie-break: first or last")
	f.IntVar(&scanConfig.top, "top", 0, "candidates listed in the report")
}

// #region run-scan
func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := scanConfiguration()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts, err := cfg.DatasetOptions()
	if err != nil {
		return err
	}
	src, err := dataset.Open(opts, logger)
	if err != nil {
		return err
	}

	var timed *classifier.TimedEvaluator
	var ev classifier.Evaluator
	base, err := cfg.Evaluator()
	if err != nil {
		return err
	}
	if base != nil {
		timed = classifier.NewTimedEvaluator(base)
		ev = timed
		defer timed.Close()
	}

	jobs := make([]scan.Job, len(cfg.Jobs))
	for i, jc := range cfg.Jobs {
		if jobs[i], err = jc.Job(); err != nil {
			return err
		}
	}
	outs, err := scan.RunAll(ctx, src, ev, jobs, cfg.Parallel, logger)
	if err != nil {
		return err
	}

	var latency *classifier.LatencySummary
	if timed != nil {
		s := timed.Summary()
		latency = &s
	}
	if err := writeReports(cmd.OutOrStdout(), cfg, outs, latency); err != nil {
		return err
	}
	if err := saveRuns(cfg, outs, logger); err != nil {
		return err
	}
	if cfg.Output.MetricsFile != "" {
		rec := metrics.NewRecorder()
		for _, out := range outs {
			rec.Observe(out)
		}
		if latency != nil {
			rec.ObserveLatency(*latency)
		}
		if err := rec.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// scanConfiguration loads the config or presets and applies flag overrides.
func scanConfiguration() (config.Config, error) {
	var cfg config.Config
	var err error
	switch {
	case scanConfig.config != "" && scanConfig.presets != "":
		return cfg, usageError("--config and --preset are exclusive")
	case scanConfig.config != "":
		cfg, err = config.Load(scanConfig.config)
	case scanConfig.presets != "":
		if scanConfig.input == "" {
			return cfg, usageError("--preset needs --input")
		}
		cfg, err = config.FromPresets(scanConfig.input, strings.Split(scanConfig.presets, ",")...)
	default:
		return cfg, usageError("one of --config or --preset is required")
	}
	if err != nil {
		return cfg, err
	}

	if scanConfig.input != "" {
		cfg.Dataset.Path = scanConfig.input
	}
	for dst, v := range map[*string]string{
		&cfg.Output.Report:      scanConfig.output,
		&cfg.Output.ROOT:        scanConfig.rootOut,
		&cfg.Output.Plots:       scanConfig.plots,
		&cfg.Output.DB:          scanConfig.db,
		&cfg.Output.MetricsFile: scanConfig.metricsFile,
	} {
		if v != "" {
			*dst = v
		}
	}
	if scanConfig.parallel > 0 {
		cfg.Parallel = scanConfig.parallel
	}
	if scanConfig.top > 0 {
		cfg.Output.TopN = scanConfig.top
	}
	if scanConfig.tieBreak != "" {
		for i := range cfg.Jobs {
			cfg.Jobs[i].TieBreak = scanConfig.tieBreak
		}
	}
	return cfg, cfg.Validate()
}

// #endregion run-scan

// #region outputs
func writeReports(stdout io.Writer, cfg config.Config, outs []*scan.Outcome, latency *classifier.LatencySummary) (err error) {
	w := stdout
	if p := cfg.Output.Report; p != "" && p != "-" {
		f, err := os.Create(p)
		if err != nil {
			return errors.Wrap(err, "create report")
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	opts := report.DefaultOptions()
	opts.TopN = cfg.Output.TopN
	opts.Latency = latency
	for _, out := range outs {
		if err := report.WriteText(w, out, opts); err != nil {
			return err
		}
	}

	if cfg.Output.ROOT != "" {
		if err := report.WriteROOT(cfg.Output.ROOT, outs); err != nil {
			return err
		}
	}
	if dir := cfg.Output.Plots; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create plot directory")
		}
		for _, out := range outs {
			if _, err := report.WritePlots(dir, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// saveRuns stores every outcome with its job configuration and logs why its
// cut was selected.
func saveRuns(cfg config.Config, outs []*scan.Outcome, logger *slog.Logger) error {
	if cfg.Output.DB == "" {
		return nil
	}
	if dir := filepath.Dir(cfg.Output.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create store directory")
		}
	}
	st, err := store.NewStore(cfg.Output.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	for i, out := range outs {
		cfgJSON, err := cfg.Jobs[i].JSON()
		if err != nil {
			return errors.Wrapf(err, "encode job %s", out.Job.Name)
		}
		run, cands := store.RunFromOutcome(out, cfgJSON)
		run, err = st.SaveRun(run, cands)
		if err != nil {
			return err
		}
		if err := logging.LogSelection(st.DB(), logging.EntryFor(run, out)); err != nil {
			return err
		}
		logger.Info("run saved", "job", run.Job, "run_id", run.RunID, "status", run.Status)
	}
	return nil
}

// #endregion outputs
