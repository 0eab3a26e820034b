// Package publish emits computed family statistics and scores to downstream consumers.
package publish

import (
	"context"

	"fx-impact-lab/internal/domain"
)

// Publisher sends the results of an engine run.
type Publisher interface {
	PublishStats(ctx context.Context, runID string, stats []*domain.FamilyStats) error
	PublishScores(ctx context.Context, runID string, scores []*domain.Score) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) PublishStats(context.Context, string, []*domain.FamilyStats) error { return nil }
func (Nop) PublishScores(context.Context, string, []*domain.Score) error      { return nil }
func (Nop) Close() error                                                      { return nil }

var _ Publisher = Nop{}

// StatsMessage is the wire form of one FamilyStats record.
type StatsMessage struct {
	RunID          string  `json:"run_id"`
	Family         string  `json:"family"`
	Country        string  `json:"country"`
	HorizonMinutes int     `json:"horizon_minutes"`
	LookbackDays   int     `json:"lookback_days"`
	ParamsHash     string  `json:"params_hash"`
	NEvents        int     `json:"n_events"`
	Sufficient     bool    `json:"sufficient"`
	PUp            float64 `json:"p_up"`
	PDown          float64 `json:"p_down"`
	MFEMedian      float64 `json:"mfe_median"`
	MFEP80         float64 `json:"mfe_p80"`
	MFEP90         float64 `json:"mfe_p90"`
	LatencyMedian  float64 `json:"latency_median"`
	LatencyP20     float64 `json:"latency_p20"`
	LatencyP80     float64 `json:"latency_p80"`
	TTRMedian      float64 `json:"ttr_median"`
	TTRP20         float64 `json:"ttr_p20"`
	TTRP80         float64 `json:"ttr_p80"`
	ReactionRate   float64 `json:"reaction_rate"`
	ImpactLevel    string  `json:"impact_level,omitempty"`
}

// NewStatsMessage converts a FamilyStats record.
func NewStatsMessage(runID string, s *domain.FamilyStats) StatsMessage {
	return StatsMessage{
		RunID:          runID,
		Family:         string(s.Family),
		Country:        s.Country,
		HorizonMinutes: s.HorizonMinutes,
		LookbackDays:   s.LookbackDays,
		ParamsHash:     s.ParamsHash,
		NEvents:        s.N,
		Sufficient:     s.Sufficient,
		PUp:            s.PUp,
		PDown:          s.PDown,
		MFEMedian:      s.MFEMedian,
		MFEP80:         s.MFEP80,
		MFEP90:         s.MFEP90,
		LatencyMedian:  s.LatencyMedian,
		LatencyP20:     s.LatencyP20,
		LatencyP80:     s.LatencyP80,
		TTRMedian:      s.TTRMedian,
		TTRP20:         s.TTRP20,
		TTRP80:         s.TTRP80,
		ReactionRate:   s.ReactionRate,
		ImpactLevel:    s.ImpactLevel,
	}
}

// ScoreMessage is the wire form of one Score record.
type ScoreMessage struct {
	RunID             string  `json:"run_id"`
	Family            string  `json:"family"`
	Country           string  `json:"country"`
	HorizonMinutes    int     `json:"horizon_minutes"`
	Composite         float64 `json:"composite"`
	Impact            float64 `json:"impact"`
	Persistence       float64 `json:"persistence"`
	Reliability       float64 `json:"reliability"`
	Importance        float64 `json:"importance"`
	ConvictionPenalty bool    `json:"conviction_penalty"`
	Grade             string  `json:"grade"`
	Tradability       string  `json:"tradability"`
	NEvents           int     `json:"n_events"`
}

// NewScoreMessage converts a Score record.
func NewScoreMessage(runID string, s *domain.Score) ScoreMessage {
	return ScoreMessage{
		RunID:             runID,
		Family:            string(s.Family),
		Country:           s.Country,
		HorizonMinutes:    s.HorizonMinutes,
		Composite:         s.Composite,
		Impact:            s.Components.Impact,
		Persistence:       s.Components.Persistence,
		Reliability:       s.Components.Reliability,
		Importance:        s.Components.Importance,
		ConvictionPenalty: s.ConvictionPenalty,
		Grade:             string(s.Grade),
		Tradability:       string(s.Tradability),
		NEvents:           s.N,
	}
}
