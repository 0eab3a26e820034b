package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# FX Event Impact Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s | Symbol: %s | Params: %s\n\n", r.RunID, r.Symbol, r.ParamsHash))
	} else if r.ParamsHash != "" {
		sb.WriteString(fmt.Sprintf("Params: %s\n\n", r.ParamsHash))
	}

	// Data Summary
	ds := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	if !ds.RangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| Event Range Start | %s |\n", ds.RangeStart.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Event Range End | %s |\n", ds.RangeEnd.Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("| Events Loaded | %d |\n", ds.EventsLoaded))
	sb.WriteString(fmt.Sprintf("| Events Analyzed | %d |\n", ds.EventsAnalyzed))
	sb.WriteString(fmt.Sprintf("| Reactions | %d |\n", ds.Reactions))
	sb.WriteString(fmt.Sprintf("| Groups | %d |\n", ds.Groups))
	sb.WriteString(fmt.Sprintf("| Sufficient Groups | %d |\n", ds.SufficientGroups))
	sb.WriteString(fmt.Sprintf("| Scored Families | %d |\n", ds.Scores))
	sb.WriteString(fmt.Sprintf("| Price Feed Start | %s |\n", formatMs(ds.PriceMinTs)))
	sb.WriteString(fmt.Sprintf("| Price Feed End | %s |\n", formatMs(ds.PriceMaxTs)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("### Sufficiency Checks\n\n")
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Statistics below may be unreliable.\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors (always shown if present, even without sufficiency checks)
	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Skips
	sb.WriteString("## Skipped Events\n\n")
	if len(r.Skips) > 0 {
		sb.WriteString("| Reason | Count | Share |\n")
		sb.WriteString("|--------|-------|-------|\n")
		for _, s := range r.Skips {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% |\n", s.Reason, s.Count, s.Share*100))
		}
	} else {
		sb.WriteString("No events skipped.\n")
	}
	sb.WriteString("\n")

	// Family Ranking
	sb.WriteString("## Family Ranking\n\n")
	if len(r.Scores) > 0 {
		sb.WriteString("| # | Family | Country | Horizon | Score | Grade | Tradability | Impact P80 | Latency | TTR | N | P(up) |\n")
		sb.WriteString("|---|--------|---------|---------|-------|-------|-------------|------------|---------|-----|---|-------|\n")
		for _, s := range r.Scores {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %.1f | %s | %s | %.1f | %.1f | %.1f | %d | %.2f |\n",
				s.Rank, s.Family, countryLabel(s.Country), s.HorizonMinutes,
				s.Composite, s.Grade, s.Tradability,
				s.MFEP80, s.LatencyMedian, s.TTRMedian, s.N, s.PUp))
		}
	} else {
		sb.WriteString("No scores available.\n")
	}
	sb.WriteString("\n")

	// Family Statistics
	sb.WriteString("## Family Statistics\n\n")
	if len(r.Stats) > 0 {
		sb.WriteString("| Family | Country | Horizon | N | P(up) | MFE Med | MFE P80 | MFE P90 | Lat Med | Lat P20-P80 | TTR Med | TTR P20-P80 | React% | Level |\n")
		sb.WriteString("|--------|---------|---------|---|-------|---------|---------|---------|---------|-------------|---------|-------------|--------|-------|\n")
		for _, s := range r.Stats {
			if !s.Sufficient {
				sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | insufficient | | | | | | | | | |\n",
					s.Family, countryLabel(s.Country), s.HorizonMinutes, s.N))
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f | %.1f | %.1f | %.1f | %.1f | %.1f-%.1f | %.1f | %.1f-%.1f | %.0f | %s |\n",
				s.Family, countryLabel(s.Country), s.HorizonMinutes, s.N, s.PUp,
				s.MFEMedian, s.MFEP80, s.MFEP90,
				s.LatencyMedian, s.LatencyP20, s.LatencyP80,
				s.TTRMedian, s.TTRP20, s.TTRP80,
				s.ReactionRate*100, s.ImpactLevel))
		}
	} else {
		sb.WriteString("No family statistics available.\n")
	}
	sb.WriteString("\n")

	// Reproducibility
	rep := r.Reproducibility
	if rep.GeneratorVersion != "" {
		sb.WriteString("## Reproducibility\n\n")
		sb.WriteString(fmt.Sprintf("- Report timestamp: %s\n", rep.ReportTimestamp.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("- Generator version: %s\n", rep.GeneratorVersion))
		sb.WriteString(fmt.Sprintf("- Data version: %s\n", rep.DataVersion))
		if rep.ReplayCommand != "" {
			sb.WriteString(fmt.Sprintf("- Replay: `%s`\n", rep.ReplayCommand))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func countryLabel(country string) string {
	if country == "" {
		return "ALL"
	}
	return country
}

func formatMs(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
