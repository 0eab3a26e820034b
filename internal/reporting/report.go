package reporting

import "time"

// Report represents the engine run report structure.
type Report struct {
	// Metadata
	RunID       string
	ParamsHash  string
	Symbol      string
	GeneratedAt time.Time

	// Data Summary
	DataSummary DataSummary

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Skipped events by reason (sorted by count desc, reason asc)
	Skips []SkipRow

	// Family statistics (sorted by family, country, horizon, lookback)
	Stats []StatsRow

	// Family scores (ranked by composite desc, family asc)
	Scores []ScoreRow

	Reproducibility ReproducibilityMetadata
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// DataSummary contains data description.
type DataSummary struct {
	RangeStart       time.Time // analyzed event range
	RangeEnd         time.Time
	EventsLoaded     int
	EventsAnalyzed   int
	Reactions        int
	Groups           int
	SufficientGroups int
	Scores           int
	PriceMinTs       int64 // Unix ms, zero when the feed is empty
	PriceMaxTs       int64
}

// SkipRow is one skip reason with its share of all skips.
type SkipRow struct {
	Reason string
	Count  int
	Share  float64 // [0,1]
}

// StatsRow represents one row in the family statistics table.
type StatsRow struct {
	Family         string  `json:"family"`
	Country        string  `json:"country"`
	HorizonMinutes int     `json:"horizon_minutes"`
	LookbackDays   int     `json:"lookback_days"`
	N              int     `json:"n"`
	Sufficient     bool    `json:"sufficient"`
	PUp            float64 `json:"p_up"`
	PDown          float64 `json:"p_down"`
	MFEMedian      float64 `json:"mfe_median"`
	MFEP80         float64 `json:"mfe_p80"`
	MFEP90         float64 `json:"mfe_p90"`
	MFEMean        float64 `json:"mfe_mean"`
	MFEStddev      float64 `json:"mfe_stddev"`
	LatencyMedian  float64 `json:"latency_median"`
	LatencyP20     float64 `json:"latency_p20"`
	LatencyP80     float64 `json:"latency_p80"`
	TTRMedian      float64 `json:"ttr_median"`
	TTRP20         float64 `json:"ttr_p20"`
	TTRP80         float64 `json:"ttr_p80"`
	ReactionRate   float64 `json:"reaction_rate"`
	EmpiricalScore float64 `json:"empirical_score"`
	ImpactLevel    string  `json:"impact_level"`
}

// ScoreRow represents one row in the ranking table.
type ScoreRow struct {
	Rank              int     `json:"rank"`
	Family            string  `json:"family"`
	Country           string  `json:"country"`
	HorizonMinutes    int     `json:"horizon_minutes"`
	Composite         float64 `json:"composite"`
	Impact            float64 `json:"impact"`
	Persistence       float64 `json:"persistence"`
	Reliability       float64 `json:"reliability"`
	Importance        float64 `json:"importance"`
	LatencyScore      float64 `json:"latency_score"`
	TTRScore          float64 `json:"ttr_score"`
	ConvictionPenalty bool    `json:"conviction_penalty"`
	Grade             string  `json:"grade"`
	Tradability       string  `json:"tradability"`
	N                 int     `json:"n"`
	MFEP80            float64 `json:"mfe_p80"`
	LatencyMedian     float64 `json:"latency_median"`
	TTRMedian         float64 `json:"ttr_median"`
	PUp               float64 `json:"p_up"`
}

// ReproducibilityMetadata contains information for reproducing the report.
type ReproducibilityMetadata struct {
	ReportTimestamp  time.Time
	GeneratorVersion string
	DataVersion      string // short hash over stats and scores
	ReplayCommand    string
}
