// Package main renders the report from the persisted stats and scores
// without re-running the engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"fx-impact-lab/internal/app"
	"fx-impact-lab/internal/config"
	"fx-impact-lab/internal/pipeline"
	"fx-impact-lab/internal/reporting"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides config)")
	formats := flag.String("formats", "", "Comma-separated formats: markdown,csv,xlsx,json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Export.OutputDir = *outputDir
	}
	if *formats != "" {
		cfg.Export.Formats = splitList(*formats)
	}
	if cfg.Storage.Backend != "db" {
		fmt.Fprintln(os.Stderr, "Error: the report command reads persisted results and needs storage.backend: db")
		fmt.Fprintln(os.Stderr, "Use go run ./cmd/pipeline --use-fixtures to render a demo report instead")
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg.Storage, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	report, err := reporting.NewGenerator(stores.Stats, stores.Scores).GenerateStored(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}
	scores, err := stores.Scores.GetAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scores: %v\n", err)
		os.Exit(1)
	}

	files, err := pipeline.WriteReport(cfg.Export.OutputDir, cfg.Export.Formats, report, scores, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report generated from %d groups and %d scores:\n",
		report.DataSummary.Groups, report.DataSummary.Scores)
	for _, f := range files {
		fmt.Printf("  - %s\n", f)
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
