package domain

import "fmt"

// StatsKey identifies one aggregation group.
type StatsKey struct {
	Family         Family
	Country        string // empty means all countries
	HorizonMinutes int
	LookbackDays   int
}

// String returns a stable, human-readable key.
func (k StatsKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%d", k.Family, k.Country, k.HorizonMinutes, k.LookbackDays)
}

// Impact level labels derived from the empirical impact score.
const (
	ImpactLevelHigh   = "HIGH"
	ImpactLevelMedium = "MEDIUM"
	ImpactLevelLow    = "LOW"
)

// FamilyStats holds percentile statistics of one group.
// When Sufficient is false every statistic is zero and only N is meaningful.
// Corresponds to family_stats table in ClickHouse.
type FamilyStats struct {
	StatsKey
	ParamsHash string // hash of the reaction parameters used

	N          int
	Sufficient bool

	// Direction
	PUp   float64
	PDown float64

	// Magnitude (pips)
	MFEMedian float64
	MFEP80    float64
	MFEP90    float64
	MFEMean   float64
	MFEStddev float64

	// Timing (minutes)
	LatencyMedian float64
	LatencyP20    float64
	LatencyP80    float64
	TTRMedian     float64
	TTRP20        float64
	TTRP80        float64

	ReactionRate   float64 // share of events crossing the reaction threshold
	EmpiricalScore float64 // [0,100] volatility + frequency + speed
	ImpactLevel    string  // HIGH | MEDIUM | LOW
}

// Conviction returns max(p_up, p_down).
func (s *FamilyStats) Conviction() float64 {
	if s.PUp > s.PDown {
		return s.PUp
	}
	return s.PDown
}
