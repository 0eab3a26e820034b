package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// StatsColumns is the header of the family statistics CSV.
var StatsColumns = []string{
	"family", "country", "horizon_minutes", "lookback_days", "n", "sufficient",
	"p_up", "p_down",
	"mfe_median", "mfe_p80", "mfe_p90", "mfe_mean", "mfe_stddev",
	"latency_median", "latency_p20", "latency_p80",
	"ttr_median", "ttr_p20", "ttr_p80",
	"reaction_rate", "empirical_score", "impact_level",
}

// ScoreColumns is the header of the ranking CSV.
var ScoreColumns = []string{
	"Family", "Country", "Horizon_Min", "Score", "Grade", "Tradability",
	"Impact_P80_Pips", "Latency_Min", "TTR_Min", "N_Events", "P_Up",
}

// WriteStatsCSV writes the statistics table to w.
func WriteStatsCSV(w io.Writer, rows []StatsRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Family,
			r.Country,
			strconv.Itoa(r.HorizonMinutes),
			strconv.Itoa(r.LookbackDays),
			strconv.Itoa(r.N),
			strconv.FormatBool(r.Sufficient),
			formatFloat(r.PUp),
			formatFloat(r.PDown),
			formatFloat(r.MFEMedian),
			formatFloat(r.MFEP80),
			formatFloat(r.MFEP90),
			formatFloat(r.MFEMean),
			formatFloat(r.MFEStddev),
			formatFloat(r.LatencyMedian),
			formatFloat(r.LatencyP20),
			formatFloat(r.LatencyP80),
			formatFloat(r.TTRMedian),
			formatFloat(r.TTRP20),
			formatFloat(r.TTRP80),
			formatFloat(r.ReactionRate),
			formatFloat(r.EmpiricalScore),
			r.ImpactLevel,
		})
	}
	return writeCSV(w, StatsColumns, records)
}

// WriteScoresCSV writes the ranking table to w. The score is rounded to one decimal.
func WriteScoresCSV(w io.Writer, rows []ScoreRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Family,
			r.Country,
			strconv.Itoa(r.HorizonMinutes),
			formatFloat(math.Round(r.Composite*10) / 10),
			r.Grade,
			r.Tradability,
			formatFloat(r.MFEP80),
			formatFloat(r.LatencyMedian),
			formatFloat(r.TTRMedian),
			strconv.Itoa(r.N),
			formatFloat(r.PUp),
		})
	}
	return writeCSV(w, ScoreColumns, records)
}

// RenderStatsCSV renders the statistics table as a CSV string.
func RenderStatsCSV(rows []StatsRow) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = WriteStatsCSV(&sb, rows)
	return sb.String()
}

// RenderScoresCSV renders the ranking table as a CSV string.
func RenderScoresCSV(rows []ScoreRow) string {
	var sb strings.Builder
	_ = WriteScoresCSV(&sb, rows)
	return sb.String()
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
