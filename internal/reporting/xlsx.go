package reporting

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary = "Summary"
	SheetScores  = "Scores"
	SheetStats   = "Stats"
)

// WriteXLSX writes the report as a workbook with summary, ranking and statistics sheets.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetScores, SheetStats} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummarySheet(f, r, headerStyle); err != nil {
		return err
	}

	scoreRecords := make([][]interface{}, 0, len(r.Scores))
	for _, s := range r.Scores {
		scoreRecords = append(scoreRecords, []interface{}{
			s.Family, countryLabel(s.Country), s.HorizonMinutes,
			math.Round(s.Composite*10) / 10, s.Grade, s.Tradability,
			s.MFEP80, s.LatencyMedian, s.TTRMedian, s.N, s.PUp,
		})
	}
	if err := writeTable(f, SheetScores, ScoreColumns, scoreRecords, headerStyle); err != nil {
		return err
	}

	statsRecords := make([][]interface{}, 0, len(r.Stats))
	for _, s := range r.Stats {
		statsRecords = append(statsRecords, []interface{}{
			s.Family, countryLabel(s.Country), s.HorizonMinutes, s.LookbackDays, s.N, s.Sufficient,
			s.PUp, s.PDown,
			s.MFEMedian, s.MFEP80, s.MFEP90, s.MFEMean, s.MFEStddev,
			s.LatencyMedian, s.LatencyP20, s.LatencyP80,
			s.TTRMedian, s.TTRP20, s.TTRP80,
			s.ReactionRate, s.EmpiricalScore, s.ImpactLevel,
		})
	}
	if err := writeTable(f, SheetStats, StatsColumns, statsRecords, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r *Report, headerStyle int) error {
	ds := r.DataSummary
	rows := [][]interface{}{
		{"Run ID", r.RunID},
		{"Symbol", r.Symbol},
		{"Params Hash", r.ParamsHash},
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
		{"Events Loaded", ds.EventsLoaded},
		{"Events Analyzed", ds.EventsAnalyzed},
		{"Reactions", ds.Reactions},
		{"Groups", ds.Groups},
		{"Sufficient Groups", ds.SufficientGroups},
		{"Data Version", r.Reproducibility.DataVersion},
	}
	for _, s := range r.Skips {
		rows = append(rows, []interface{}{"Skipped: " + s.Reason, s.Count})
	}
	return writeTable(f, SheetSummary, []string{"Metric", "Value"}, rows, headerStyle)
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i, err)
		}
	}
	return nil
}
