package scoring

import (
	"math"

	"fx-impact-lab/internal/domain"
)

// ExportRow is the flat tabular form of a Score.
type ExportRow struct {
	Family        string  `json:"family"`
	Score         float64 `json:"score"`
	Grade         string  `json:"grade"`
	Tradability   string  `json:"tradability"`
	ImpactP80Pips float64 `json:"impact_p80_pips"`
	LatencyMin    float64 `json:"latency_min"`
	TTRMin        float64 `json:"ttr_min"`
	NEvents       int     `json:"n_events"`
	PUp           float64 `json:"p_up"`
}

// ExportColumns is the header of ExportRow in column order.
var ExportColumns = []string{
	"Family", "Score", "Grade", "Tradability",
	"Impact_P80_Pips", "Latency_Min", "TTR_Min", "N_Events", "P_Up",
}

// ToExportRows converts scores to export rows, preserving order.
// The composite is rounded to one decimal.
func ToExportRows(scores []*domain.Score) []ExportRow {
	rows := make([]ExportRow, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, ExportRow{
			Family:        s.Family.String(),
			Score:         math.Round(s.Composite*10) / 10,
			Grade:         string(s.Grade),
			Tradability:   string(s.Tradability),
			ImpactP80Pips: s.MFEP80,
			LatencyMin:    s.LatencyMedian,
			TTRMin:        s.TTRMedian,
			NEvents:       s.N,
			PUp:           s.PUp,
		})
	}
	return rows
}
