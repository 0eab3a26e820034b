// Package pipeline runs the engine and writes the report files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/observability"
	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/reporting"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatJSON     = "json"
)

// Output file names.
const (
	ReportFile     = "REPORT.md"
	StatsCSVFile   = "family_stats.csv"
	ScoresCSVFile  = "family_scores.csv"
	WorkbookFile   = "fx_impact_report.xlsx"
	ScoresJSONFile = "family_scores.json"
)

// Data sources recorded in the reproducibility metadata.
const (
	DataSourceFixtures = "fixtures"
	DataSourceDB       = "db"
)

// ErrNoOutputDir is returned when Run is called without an output directory.
var ErrNoOutputDir = errors.New("output directory not set")

// Runner is the part of the orchestrator the pipeline needs.
type Runner interface {
	Run(ctx context.Context, req orchestrator.RunRequest) (*orchestrator.RunResult, error)
}

// ReportPipeline runs the engine and renders the report in every configured format.
type ReportPipeline struct {
	runner             Runner
	reportGen          *reporting.Generator
	sufficiencyChecker *SufficiencyChecker
	outputDir          string
	formats            []string
	clock              func() time.Time
	integrityErrors    []string // additional integrity errors (e.g., from ingestion)
	dataSource         string   // "fixtures" or "db" for replay command
	configPath         string
	metrics            *observability.Metrics
	log                *logger.Logger
}

// Output describes a completed pipeline run.
type Output struct {
	Result *orchestrator.RunResult
	Report *reporting.Report
	Files  []string // written paths in write order
}

// NewReportPipeline creates a new pipeline writing markdown and CSV into outputDir.
func NewReportPipeline(runner Runner, outputDir string) *ReportPipeline {
	return &ReportPipeline{
		runner:             runner,
		reportGen:          reporting.NewGenerator(nil, nil),
		sufficiencyChecker: NewSufficiencyChecker(DefaultSufficiencyThresholds()),
		outputDir:          outputDir,
		formats:            []string{FormatMarkdown, FormatCSV},
		clock:              func() time.Time { return time.Now().UTC() },
		log:                logger.Nop(),
	}
}

// WithFormats replaces the output formats.
func (p *ReportPipeline) WithFormats(formats []string) *ReportPipeline {
	p.formats = append([]string(nil), formats...)
	return p
}

// WithSufficiencyThresholds replaces the default sufficiency thresholds.
func (p *ReportPipeline) WithSufficiencyThresholds(t SufficiencyThresholds) *ReportPipeline {
	p.sufficiencyChecker = NewSufficiencyChecker(t)
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *ReportPipeline) WithClock(clock func() time.Time) *ReportPipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithIntegrityErrors adds additional integrity errors to include in the report.
// These are merged with errors from sufficiency checks.
func (p *ReportPipeline) WithIntegrityErrors(errs []string) *ReportPipeline {
	p.integrityErrors = append(p.integrityErrors, errs...)
	return p
}

// WithDataSource sets the data source for reproducibility metadata.
func (p *ReportPipeline) WithDataSource(source, configPath string) *ReportPipeline {
	p.dataSource = source
	p.configPath = configPath
	return p
}

// WithMetrics records written reports.
func (p *ReportPipeline) WithMetrics(m *observability.Metrics) *ReportPipeline {
	p.metrics = m
	return p
}

// WithLogger sets the logger.
func (p *ReportPipeline) WithLogger(log *logger.Logger) *ReportPipeline {
	if log != nil {
		p.log = log.With(logger.String("component", "pipeline"))
	}
	return p
}

// Run executes the engine and writes output files:
// - REPORT.md
// - family_stats.csv and family_scores.csv
// - fx_impact_report.xlsx
// - family_scores.json
// Only the configured formats are written.
func (p *ReportPipeline) Run(ctx context.Context, req orchestrator.RunRequest) (*Output, error) {
	if p.outputDir == "" {
		return nil, ErrNoOutputDir
	}

	// 1. Run the engine
	result, err := p.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2. Generate report
	report, err := p.reportGen.Generate(ctx, result)
	if err != nil {
		return nil, err
	}

	// 3. Sufficiency checks and integrity errors
	dataQuality := convertToDataQuality(p.sufficiencyChecker.Check(result))
	if len(p.integrityErrors) > 0 {
		dataQuality.IntegrityErrors = append(dataQuality.IntegrityErrors, p.integrityErrors...)
		dataQuality.AllChecksPassed = false
	}
	report.DataQuality = dataQuality
	if !dataQuality.AllChecksPassed {
		p.log.Warn("data sufficiency checks failed", logger.String("run_id", result.RunID))
	}

	// 4. Reproducibility
	report.Reproducibility.ReplayCommand = p.buildReplayCommand(result)

	// 5. Write files
	files, err := WriteReport(p.outputDir, p.formats, report, result.Scores, p.metrics)
	if err != nil {
		return nil, err
	}
	out := &Output{Result: result, Report: report, Files: files}

	p.log.Info("report written",
		logger.String("run_id", result.RunID),
		logger.String("dir", p.outputDir),
		logger.Int("files", len(out.Files)),
	)
	return out, nil
}

// buildReplayCommand returns the command to reproduce this report.
func (p *ReportPipeline) buildReplayCommand(result *orchestrator.RunResult) string {
	rangeFlags := fmt.Sprintf("--start %s --end %s",
		result.Start.UTC().Format(time.RFC3339), result.End.UTC().Format(time.RFC3339))

	switch p.dataSource {
	case DataSourceDB:
		if p.configPath != "" {
			return fmt.Sprintf("go run ./cmd/pipeline --config %q %s", p.configPath, rangeFlags)
		}
		return "go run ./cmd/pipeline " + rangeFlags
	default:
		return "go run ./cmd/pipeline --use-fixtures " + rangeFlags
	}
}
