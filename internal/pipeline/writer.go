package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/observability"
	"fx-impact-lab/internal/reporting"
	"fx-impact-lab/internal/scoring"
)

const defaultFileMode = 0644

// WriteReport renders report into dir in each of formats and returns the
// written paths in write order. scores feed the JSON export.
func WriteReport(dir string, formats []string, report *reporting.Report, scores []*domain.Score, m *observability.Metrics) ([]string, error) {
	if dir == "" {
		return nil, ErrNoOutputDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, format := range formats {
		files, err := writeFormat(dir, format, report, scores)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", format, err)
		}
		written = append(written, files...)
		m.RecordReport(format)
	}
	return written, nil
}

func writeFormat(dir, format string, report *reporting.Report, scores []*domain.Score) ([]string, error) {
	switch format {
	case FormatMarkdown:
		path, err := writeFile(dir, ReportFile, []byte(reporting.RenderMarkdown(report)))
		return []string{path}, err

	case FormatCSV:
		statsPath, err := writeFile(dir, StatsCSVFile, []byte(reporting.RenderStatsCSV(report.Stats)))
		if err != nil {
			return nil, err
		}
		scoresPath, err := writeFile(dir, ScoresCSVFile, []byte(reporting.RenderScoresCSV(report.Scores)))
		return []string{statsPath, scoresPath}, err

	case FormatXLSX:
		var buf bytes.Buffer
		if err := reporting.WriteXLSX(&buf, report); err != nil {
			return nil, err
		}
		path, err := writeFile(dir, WorkbookFile, buf.Bytes())
		return []string{path}, err

	case FormatJSON:
		data, err := json.MarshalIndent(scoring.ToExportRows(scores), "", "  ")
		if err != nil {
			return nil, err
		}
		path, err := writeFile(dir, ScoresJSONFile, append(data, '\n'))
		return []string{path}, err

	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, defaultFileMode); err != nil {
		return "", err
	}
	return path, nil
}
