package combiner

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned for structurally invalid combiner parameters.
var ErrInvalidConfig = errors.New("invalid combiner config")

// Session labels.
const (
	SessionExcellent = "EXCELLENT"
	SessionFair      = "FAIR"
	SessionDifficult = "DIFFICULT"
)

// SessionConfig parameterizes the session tradability heuristic.
type SessionConfig struct {
	BaseScore float64

	CountBonusPerEvent float64 // per event beyond the first
	MaxCountEvents     int     // events counted for the bonus

	CoherenceBonus float64 // added when all directions agree, subtracted otherwise

	LargeImpactPips   float64
	LargeImpactBonus  float64
	MediumImpactPips  float64
	MediumImpactBonus float64

	HighOverlapPenalty float64 // per high-severity overlap

	CompactSpanMinutes float64
	CompactSpanBonus   float64
	WideSpanMinutes    float64
	WideSpanPenalty    float64

	ExcellentMinScore float64
	FairMinScore      float64
}

// Config holds the combiner parameters.
type Config struct {
	EntryLeadMinutes         float64 // entry this long before the first event
	StrongInteractionMinutes float64 // span at or below which events interact strongly

	HighOverlapMinutes   float64
	MediumOverlapMinutes float64

	// Prediction from surprise
	SurpriseScale     float64 // surprise giving a factor of 1
	MaxSurpriseFactor float64

	ScenarioDeltas []float64

	Session SessionConfig
}

// DefaultConfig returns the default combiner parameters.
func DefaultConfig() Config {
	return Config{
		EntryLeadMinutes:         2,
		StrongInteractionMinutes: 120,
		HighOverlapMinutes:       15,
		MediumOverlapMinutes:     5,
		SurpriseScale:            50,
		MaxSurpriseFactor:        2,
		ScenarioDeltas:           []float64{-2, -1, 0, 1, 2},
		Session: SessionConfig{
			BaseScore:          50,
			CountBonusPerEvent: 5,
			MaxCountEvents:     3,
			CoherenceBonus:     20,
			LargeImpactPips:    30,
			LargeImpactBonus:   15,
			MediumImpactPips:   15,
			MediumImpactBonus:  8,
			HighOverlapPenalty: 10,
			CompactSpanMinutes: 120,
			CompactSpanBonus:   10,
			WideSpanMinutes:    360,
			WideSpanPenalty:    10,
			ExcellentMinScore:  75,
			FairMinScore:       50,
		},
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.EntryLeadMinutes < 0 {
		return fmt.Errorf("%w: entry lead must be non-negative", ErrInvalidConfig)
	}
	if c.StrongInteractionMinutes < 0 {
		return fmt.Errorf("%w: strong interaction span must be non-negative", ErrInvalidConfig)
	}
	if c.MediumOverlapMinutes < 0 || c.HighOverlapMinutes < c.MediumOverlapMinutes {
		return fmt.Errorf("%w: overlap thresholds must satisfy 0 <= medium <= high", ErrInvalidConfig)
	}
	if c.SurpriseScale <= 0 || c.MaxSurpriseFactor <= 0 {
		return fmt.Errorf("%w: surprise scale and cap must be positive", ErrInvalidConfig)
	}
	s := c.Session
	if s.MaxCountEvents < 0 {
		return fmt.Errorf("%w: max count events must be non-negative", ErrInvalidConfig)
	}
	if s.MediumImpactPips > s.LargeImpactPips {
		return fmt.Errorf("%w: medium impact threshold above large", ErrInvalidConfig)
	}
	if s.CompactSpanMinutes > s.WideSpanMinutes {
		return fmt.Errorf("%w: compact span above wide span", ErrInvalidConfig)
	}
	if s.FairMinScore > s.ExcellentMinScore {
		return fmt.Errorf("%w: session label thresholds must be descending", ErrInvalidConfig)
	}
	return nil
}
