// Package main runs the HTTP API together with the scheduled engine runs:
// - API: families, stats, scores, plans and on-demand runs under /api/v1
// - Scheduler (cron): engine run over the lookback window, report files, Kafka records
// - Metrics: Prometheus endpoint
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"fx-impact-lab/internal/api"
	"fx-impact-lab/internal/app"
	"fx-impact-lab/internal/config"
	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/observability"
	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/pipeline"
)

func main() {
	// Parse flags
	configPath := flag.String("config", os.Getenv("FXIMPACT_CONFIG"), "Path to YAML config file")
	useFixtures := flag.Bool("use-fixtures", false, "Serve synthetic in-memory fixtures instead of the configured storage")
	runOnStart := flag.Bool("run-on-start", false, "Run the engine once before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *configPath, *useFixtures, *runOnStart, log); err != nil {
		log.Error("server stopped with error", logger.Err(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, configPath string, useFixtures, runOnStart bool, log *logger.Logger) error {
	// Create context with cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics("fximpact", reg)

	opts := app.Options{Logger: log, Metrics: metrics}
	source := pipeline.DataSourceDB
	if useFixtures {
		source = pipeline.DataSourceFixtures
		fc := pipeline.DefaultFixtureConfig()
		fc.Symbol = cfg.Engine.Symbol
		opts.Stores = app.NewMemoryStores()
		nEvents, nPrices, err := pipeline.LoadFixtures(ctx, opts.Stores.Events, opts.Stores.Prices, fc)
		if err != nil {
			return fmt.Errorf("load fixtures: %w", err)
		}
		log.Info("fixtures loaded", logger.Int("events", nEvents), logger.Int("prices", nPrices))
	}

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer a.Close()

	p := pipeline.NewReportPipeline(a.Orchestrator, cfg.Export.OutputDir).
		WithFormats(cfg.Export.Formats).
		WithDataSource(source, configPath).
		WithMetrics(metrics).
		WithLogger(log)
	scheduler := pipeline.NewScheduler(p, cfg.Engine.LookbackDays, metrics, log)

	if runOnStart {
		end := time.Now().UTC()
		if _, err := scheduler.Run(ctx, runRange(end, cfg.Engine.LookbackDays)); err != nil {
			return fmt.Errorf("initial run: %w", err)
		}
	}

	if cfg.Server.Schedule != "" {
		if err := scheduler.Start(ctx, cfg.Server.Schedule); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	handler := api.NewHandler(api.Options{
		Stats:        a.Stores.Stats,
		Scores:       a.Stores.Scores,
		Events:       a.Stores.Events,
		Groups:       a.Orchestrator,
		Planner:      a.Planner,
		Runner:       scheduler,
		Classifier:   a.Classifier,
		ScoreHorizon: cfg.Engine.ScoreHorizon,
		Logger:       log,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		Metrics:     metrics,
		MetricsPath: cfg.Server.MetricsPath,
		Timeout:     cfg.Server.WriteTimeout,
		Logger:      log,
	})
	srv := api.NewServer(cfg.Server.Addr, router,
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout, log)

	log.Info("server starting",
		logger.String("addr", cfg.Server.Addr),
		logger.String("symbol", cfg.Engine.Symbol),
		logger.String("storage", cfg.Storage.Backend),
		logger.String("cache", cfg.Cache.Backend),
		logger.String("schedule", cfg.Server.Schedule),
		logger.String("params_hash", a.Orchestrator.ParamsHash()),
	)

	return srv.Run(ctx)
}

func runRange(end time.Time, lookbackDays int) orchestrator.RunRequest {
	return orchestrator.RunRequest{Start: end.AddDate(0, 0, -lookbackDays), End: end}
}
