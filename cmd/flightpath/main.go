package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pablasso/flightpath/internal/cli"
	"github.com/pablasso/flightpath/internal/config"
	"github.com/pablasso/flightpath/internal/logging"
	"github.com/pablasso/flightpath/internal/metrics"
	"github.com/pablasso/flightpath/internal/tui"
	"github.com/pablasso/flightpath/internal/version"
)

func main() {
	res, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	switch {
	case res.Command:
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
	case res.ShowHelp:
		fmt.Print(res.HelpText)
	case res.ShowVersion:
		fmt.Println(version.String())
	default:
		if err := runTUI(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// runTUI loads configuration, opens the log file and serves metrics for as
// long as the interactive planner runs.
func runTUI(res parseResult) error {
	cfg, err := config.Load(config.New(), res.ConfigPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Close()

	collector := metrics.NewCollector()
	if cfg.Metrics.Addr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, collector.Handler(), logger.Logger); err != nil {
				logger.Error("metrics_server_failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	opts := res.Options
	opts.Config = cfg
	opts.Logger = logger.Logger
	opts.Metrics = collector
	logger.Info("tui_started", "version", version.Version, "log_file", logger.LogFile, "demo", opts.Demo != nil)
	return tui.Run(opts)
}
