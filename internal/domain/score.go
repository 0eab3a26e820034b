package domain

// Grade is the letter bucket of a composite score.
type Grade string

// GradeNone is assigned to groups without any event.
const GradeNone Grade = "N/A"

// Tradability is the ordinal trading-suitability class.
type Tradability string

const (
	TradabilityExcellent Tradability = "EXCELLENT"
	TradabilityGood      Tradability = "GOOD"
	TradabilityFair      Tradability = "FAIR"
	TradabilityPoor      Tradability = "POOR"
	TradabilityAvoid     Tradability = "AVOID"
	TradabilityNone      Tradability = "N/A"
)

// ScoreComponents are the weighted sub-scores, each in [0,100].
type ScoreComponents struct {
	Impact      float64
	Persistence float64
	Reliability float64
	Importance  float64
}

// Score is the normalized ranking of one family group.
// Corresponds to family_scores table in PostgreSQL.
type Score struct {
	Family         Family
	Country        string
	HorizonMinutes int

	Composite         float64 // [0,100]
	Components        ScoreComponents
	LatencyScore      float64 // [0,1]
	TTRScore          float64 // [0,1]
	ConvictionPenalty bool    // weak directional signal penalty applied
	Grade             Grade
	Tradability       Tradability

	// Raw metrics the score was derived from
	N             int
	MFEP80        float64
	LatencyMedian float64
	TTRMedian     float64
	PUp           float64
}
