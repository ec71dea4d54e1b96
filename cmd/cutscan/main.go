package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cutscan/internal/config"
	"github.com/danielpatrickdp/cutscan/internal/grid"
	"github.com/danielpatrickdp/cutscan/internal/logging"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

// Exit statuses.
const (
	exitFailure = 1
	exitUsage   = 2
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "cutscan [command] (flags)",
	Short:         "threshold-cut significance scans over labelled ntuples",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		scanCmd,
		inspectCmd,
		replayCmd,
		generateCmd,
		exportCmd,
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config, else info)")
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "", "log format: text or json")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Mark(err, config.ErrInvalidConfig)
	})
}

// #region main
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cutscan: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration mistakes to the usage status and everything
// else (unavailable data, scan faults, failed replays) to failure.
func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, scan.ErrInvalidJob),
		errors.Is(err, grid.ErrInvalidGrid):
		return exitUsage
	}
	return exitFailure
}

// #endregion main

// #region logger
// newLogger builds the stderr logger. Flags win over the config values.
func newLogger(cfgLevel, cfgFormat string) (*slog.Logger, error) {
	level, format := cfgLevel, cfgFormat
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	if level == "" {
		level = "info"
	}
	logger, err := logging.NewLogger(os.Stderr, level, logging.Format(format))
	if err != nil {
		return nil, errors.Mark(err, config.ErrInvalidConfig)
	}
	return logger, nil
}

// usageError marks a missing or conflicting flag.
func usageError(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), config.ErrInvalidConfig)
}

// #endregion logger
