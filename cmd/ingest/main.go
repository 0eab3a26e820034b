// Package main loads calendar events and price samples from CSV files into storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"fx-impact-lab/internal/app"
	"fx-impact-lab/internal/config"
	"fx-impact-lab/internal/ingestion"
	"fx-impact-lab/internal/logger"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	eventsPath := flag.String("events", "", "Calendar CSV file (ts_utc, country, title, actual, forecast, previous, ...)")
	pricesPath := flag.String("prices", "", "Price CSV file (ts_utc, close)")
	symbol := flag.String("symbol", "", "Symbol of the price file (default: engine symbol from config)")
	skipExisting := flag.Bool("skip-existing", false, "Skip records already stored instead of failing")
	flag.Parse()

	if *eventsPath == "" && *pricesPath == "" {
		fmt.Fprintln(os.Stderr, "Error: at least one of --events or --prices is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *symbol == "" {
		*symbol = cfg.Engine.Symbol
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend != "db" {
		fmt.Println("Storage backend is memory: files are validated but nothing is persisted")
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	stores, err := app.OpenStores(ctx, cfg.Storage, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	opts := ingestion.ManagerOptions{
		EventStore:   stores.Events,
		PriceStore:   stores.Prices,
		SkipExisting: *skipExisting,
		Logger:       log,
	}
	var (
		eventSource *ingestion.CSVEventSource
		priceSource *ingestion.CSVPriceSource
	)
	if *eventsPath != "" {
		eventSource = ingestion.NewCSVEventSource(*eventsPath)
		opts.EventSource = eventSource
	}
	if *pricesPath != "" {
		priceSource = ingestion.NewCSVPriceSource(*pricesPath, *symbol)
		opts.PriceSource = priceSource
	}
	manager := ingestion.NewManager(opts)

	// Files are ingested whole
	var from, to int64 = math.MinInt64, math.MaxInt64

	exitCode := 0
	if eventSource != nil {
		res, err := manager.IngestEvents(ctx, from, to)
		if err != nil {
			log.Error("event ingestion failed", logger.String("file", *eventsPath), logger.Err(err))
			fmt.Fprintf(os.Stderr, "Error ingesting events: %v\n", err)
			exitCode = 1
		} else {
			printResult("Events", *eventsPath, eventSource.Stats(), res)
		}
	}
	if priceSource != nil && ctx.Err() == nil {
		res, err := manager.IngestPrices(ctx, from, to)
		if err != nil {
			log.Error("price ingestion failed", logger.String("file", *pricesPath), logger.Err(err))
			fmt.Fprintf(os.Stderr, "Error ingesting prices: %v\n", err)
			exitCode = 1
		} else {
			printResult("Prices ("+*symbol+")", *pricesPath, priceSource.Stats(), res)
		}
	}

	if exitCode != 0 {
		stores.Close()
		os.Exit(exitCode)
	}
}

func printResult(label, path string, stats ingestion.ParseStats, res ingestion.Result) {
	fmt.Printf("%s from %s:\n", label, path)
	fmt.Printf("  Rows read:   %d (%d dropped)\n", stats.Rows, stats.Dropped)
	fmt.Printf("  Fetched:     %d\n", res.Fetched)
	fmt.Printf("  Duplicates:  %d\n", res.Duplicates)
	fmt.Printf("  Existing:    %d\n", res.Existing)
	fmt.Printf("  Inserted:    %d\n", res.Inserted)
}
