package scoring

import (
	"errors"
	"fmt"
	"math"

	"fx-impact-lab/internal/domain"
)

// ErrInvalidConfig is returned for structurally invalid scorer parameters.
var ErrInvalidConfig = errors.New("invalid scoring config")

// Weights are the composite weights of the four sub-scores. They must sum to 1.
type Weights struct {
	Impact      float64
	Persistence float64
	Reliability float64
	Importance  float64
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Impact + w.Persistence + w.Reliability + w.Importance
}

// GradeThreshold maps a minimum composite onto a grade.
type GradeThreshold struct {
	Grade    domain.Grade
	MinScore float64
}

// TradabilityRules are the thresholds of the tradability table.
// EXCELLENT requires every Excellent* condition at once.
type TradabilityRules struct {
	ExcellentMinScore      float64
	ExcellentMinImpactPips float64
	ExcellentMinConviction float64
	ExcellentMinTTR        float64
	ExcellentMinN          int

	GoodMinScore float64
	FairMinScore float64
	PoorMinScore float64
}

// Config holds the normalization curves and threshold tables.
type Config struct {
	Weights Weights

	// Impact: logistic over MFE p80
	ImpactMidpointPips float64
	ImpactSteepness    float64

	// Latency: 1.0 at or below optimal, LatencyFloor at or above slow
	LatencyOptimalMinutes float64
	LatencySlowMinutes    float64
	LatencyFloor          float64

	// TTR: 1.0 at or above optimal, TTRFloor at or below minimum
	TTROptimalMinutes float64
	TTRMinMinutes     float64
	TTRFloor          float64

	// Reliability
	MinReliableN  int
	TargetN       int
	PartialCredit float64

	// Directional conviction
	ConvictionThreshold float64
	ConvictionPenalty   float64

	Grades      []GradeThreshold // strictly descending MinScore
	Tradability TradabilityRules
}

// DefaultGrades returns the default grade table.
func DefaultGrades() []GradeThreshold {
	return []GradeThreshold{
		{Grade: "A+", MinScore: 85},
		{Grade: "A", MinScore: 75},
		{Grade: "B+", MinScore: 65},
		{Grade: "B", MinScore: 55},
		{Grade: "C+", MinScore: 45},
		{Grade: "C", MinScore: 35},
		{Grade: "D", MinScore: 0},
	}
}

// DefaultConfig returns the default scorer parameters.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Impact:      0.40,
			Persistence: 0.30,
			Reliability: 0.20,
			Importance:  0.10,
		},
		ImpactMidpointPips:    50,
		ImpactSteepness:       0.05,
		LatencyOptimalMinutes: 5,
		LatencySlowMinutes:    60,
		LatencyFloor:          0.2,
		TTROptimalMinutes:     60,
		TTRMinMinutes:         15,
		TTRFloor:              0.3,
		MinReliableN:          10,
		TargetN:               20,
		PartialCredit:         0.5,
		ConvictionThreshold:   0.6,
		ConvictionPenalty:     0.85,
		Grades:                DefaultGrades(),
		Tradability: TradabilityRules{
			ExcellentMinScore:      75,
			ExcellentMinImpactPips: 15,
			ExcellentMinConviction: 0.65,
			ExcellentMinTTR:        20,
			ExcellentMinN:          5,
			GoodMinScore:           60,
			FairMinScore:           45,
			PoorMinScore:           30,
		},
	}
}

// Validate checks weights, curves and threshold tables.
func (c Config) Validate() error {
	w := c.Weights
	if w.Impact < 0 || w.Persistence < 0 || w.Reliability < 0 || w.Importance < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidConfig)
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %.6f, want 1", ErrInvalidConfig, w.Sum())
	}
	if c.ImpactSteepness <= 0 {
		return fmt.Errorf("%w: impact steepness must be positive", ErrInvalidConfig)
	}
	if c.LatencyOptimalMinutes >= c.LatencySlowMinutes {
		return fmt.Errorf("%w: latency optimal must be below slow", ErrInvalidConfig)
	}
	if c.TTRMinMinutes >= c.TTROptimalMinutes {
		return fmt.Errorf("%w: ttr minimum must be below optimal", ErrInvalidConfig)
	}
	if c.LatencyFloor < 0 || c.LatencyFloor > 1 || c.TTRFloor < 0 || c.TTRFloor > 1 {
		return fmt.Errorf("%w: curve floors must be in [0,1]", ErrInvalidConfig)
	}
	if c.MinReliableN < 1 || c.TargetN < 1 {
		return fmt.Errorf("%w: reliability counts must be positive", ErrInvalidConfig)
	}
	if c.PartialCredit < 0 || c.PartialCredit > 1 {
		return fmt.Errorf("%w: partial credit must be in [0,1]", ErrInvalidConfig)
	}
	// Full credit at MinReliableN must not fall below the partial credit just under it.
	if float64(c.MinReliableN)/float64(c.TargetN) < c.PartialCredit {
		return fmt.Errorf("%w: reliability curve not monotone (min_reliable_n/target_n < partial_credit)", ErrInvalidConfig)
	}
	if c.ConvictionPenalty <= 0 || c.ConvictionPenalty > 1 {
		return fmt.Errorf("%w: conviction penalty must be in (0,1]", ErrInvalidConfig)
	}
	if len(c.Grades) == 0 {
		return fmt.Errorf("%w: grade table is empty", ErrInvalidConfig)
	}
	for i := 1; i < len(c.Grades); i++ {
		if c.Grades[i].MinScore >= c.Grades[i-1].MinScore {
			return fmt.Errorf("%w: grade thresholds must be strictly descending (%s after %s)",
				ErrInvalidConfig, c.Grades[i].Grade, c.Grades[i-1].Grade)
		}
	}
	t := c.Tradability
	if !(t.ExcellentMinScore >= t.GoodMinScore && t.GoodMinScore >= t.FairMinScore && t.FairMinScore >= t.PoorMinScore) {
		return fmt.Errorf("%w: tradability thresholds must be descending", ErrInvalidConfig)
	}
	return nil
}
