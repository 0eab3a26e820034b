// Package main builds the combined trading plan for one day of releases.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fx-impact-lab/internal/app"
	"fx-impact-lab/internal/config"
	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/ingestion"
	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/pipeline"
	"fx-impact-lab/internal/planner"
	"fx-impact-lab/internal/reporting"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	dateFlag := flag.String("date", "", "Trading day, YYYY-MM-DD (required)")
	eventsPath := flag.String("events", "", "Calendar CSV with the day's releases (default: stored events of the day)")
	useFixtures := flag.Bool("use-fixtures", false, "Compute stats from synthetic fixtures before planning")
	outputPath := flag.String("output", "", "Write the plan JSON to this file instead of stdout")
	flag.Parse()

	if *dateFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --date is required")
		os.Exit(1)
	}
	date, err := time.Parse(time.DateOnly, *dateFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --date: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// Plan JSON goes to stdout, keep the log on stderr
	if cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Received interrupt, shutting down...")
		cancel()
	}()

	opts := app.Options{Logger: log}
	var fixtures pipeline.FixtureConfig
	if *useFixtures {
		fixtures = pipeline.DefaultFixtureConfig()
		fixtures.Symbol = cfg.Engine.Symbol
		opts.Stores = app.NewMemoryStores()
		if _, _, err := pipeline.LoadFixtures(ctx, opts.Stores.Events, opts.Stores.Prices, fixtures); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
			os.Exit(1)
		}
	}

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating engine: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if *useFixtures {
		// Reactions must exist before groups can be computed
		if _, err := a.Orchestrator.Run(ctx, orchestrator.RunRequest{
			Start: fixtures.Start,
			End:   fixtures.Start.AddDate(0, fixtures.Months, 0),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error running engine on fixtures: %v\n", err)
			os.Exit(1)
		}
	}

	events, err := loadEvents(ctx, *eventsPath, date, a.Stores)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading events: %v\n", err)
		os.Exit(1)
	}

	plan, err := a.Planner.Plan(ctx, planner.Inputs(events))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building plan: %v\n", err)
		os.Exit(1)
	}
	for _, s := range plan.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped %s (%s): %s\n", s.Title, s.EventID, s.Reason)
	}
	if plan.Prediction == nil {
		fmt.Fprintln(os.Stderr, "Error: no predictable event on", *dateFlag)
		os.Exit(1)
	}

	doc := reporting.NewPlanDocument(date, plan.Prediction)
	doc.Warnings = plan.Warnings()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding plan: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *outputPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outputPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing plan: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Plan written to %s\n", *outputPath)
}

// loadEvents reads the day's releases from path, or from the event store when
// path is empty.
func loadEvents(ctx context.Context, path string, date time.Time, stores *app.Stores) ([]*domain.Event, error) {
	if path == "" {
		events, err := planner.EventsForDate(ctx, stores.Events, date)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			return nil, fmt.Errorf("no stored events on %s", date.Format(time.DateOnly))
		}
		return events, nil
	}

	from := date.UnixMilli()
	to := date.AddDate(0, 0, 1).UnixMilli() - 1
	events, err := ingestion.NewCSVEventSource(path).Fetch(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%s has no events on %s", path, date.Format(time.DateOnly))
	}
	ingestion.SortEvents(events)
	return events, nil
}
