// Command scorer-server serves the ONNX classifiers over gRPC so scans on
// machines without the ONNX runtime can evaluate model variables remotely.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/config"
	"github.com/danielpatrickdp/cutscan/internal/logging"
)

const defaultListen = ":7070"

// #region main
func main() {
	cfgPath := pflag.String("config", envOr("CUTSCAN_CONFIG", "cutscan.yaml"), "config file listing the models")
	listen := pflag.String("listen", "", "listen address (default from config, else "+defaultListen+")")
	level := pflag.String("log-level", "info", "log level")
	pflag.Parse()

	logger, err := logging.NewLogger(os.Stderr, *level, logging.FormatText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scorer-server: %v\n", err)
		os.Exit(2)
	}
	if err := run(*cfgPath, *listen, logger); err != nil {
		logger.Error("scorer-server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfgPath, listen string, logger *slog.Logger) error {
	sc, err := config.LoadServe(cfgPath)
	if err != nil {
		return err
	}
	addr := listen
	if addr == "" {
		addr = sc.Listen
	}
	if addr == "" {
		addr = defaultListen
	}

	ev, err := classifier.NewOnnxEvaluator(sc.ONNXLibrary, sc.ClassifierModels()...)
	if err != nil {
		return err
	}
	defer ev.Close()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	srv := grpc.NewServer()
	classifier.RegisterScorerServer(srv, classifier.NewEvaluatorServer(ev))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		srv.GracefulStop()
	}()

	names := make([]string, len(sc.Models))
	for i, m := range sc.Models {
		names[i] = m.Name
	}
	logger.Info("scorer listening", "addr", lis.Addr().String(), "models", names)
	return srv.Serve(lis)
}

// #endregion main

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
