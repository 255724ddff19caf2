package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/google/uuid"

	r "histdata/data/repos"
	c "histdata/service/core"
	"histdata/service/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $"+config.ConfigFileEnv+")")
	flag.Parse()

	// initialize context and signal handler, listen for interrupt and term signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is loaded inside config.Load, before the environment is read
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := c.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	window, err := cfg.Window.Parse()
	if err != nil {
		logger.Error("failed to parse window", "error", err)
		os.Exit(1)
	}

	plan, err := c.PlanFromConfig(cfg, window)
	if err != nil {
		logger.Error("failed to build series plan", "error", err)
		os.Exit(1)
	}

	writers := []r.TableWriter{r.NewCSVRepo(cfg.Output.Path)}
	if cfg.Output.XLSXPath != "" {
		writers = append(writers, r.NewXLSXRepo(cfg.Output.XLSXPath))
	}

	sc := c.ServiceContext{
		Context: ctx,
		RunID:   uuid.NewString(),
		Config:  cfg,
		Window:  window,
		Logger:  logger,
		Sources: c.NewSources(cfg, logger),
		Writers: writers,
		Metrics: c.NewMetrics(),
	}

	report, err := sc.Run(plan)
	if err != nil {
		logger.Error("run failed", "run_id", sc.RunID, "error", err, "fetched", len(report.Outcomes))
		os.Exit(1)
	}

	for _, o := range report.Failed() {
		logger.Warn("series missing from output", "run_id", sc.RunID, "series", o.Series.Name, "error", o.Err)
	}
}
