package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"fx-impact-lab/internal/classifier"
	"fx-impact-lab/internal/combiner"
	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/reaction"
	"fx-impact-lab/internal/scoring"
)

var validate = validator.New()

// Validate runs struct-tag validation followed by the engine checks:
// weights, threshold tables, curves and the family table.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if !containsInt(c.Engine.Horizons, c.Engine.ScoreHorizon) {
		return fmt.Errorf("%w: score horizon %d is not one of the horizons %v",
			ErrInvalidConfig, c.Engine.ScoreHorizon, c.Engine.Horizons)
	}
	if err := c.ReactionConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.ScoringConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.CombinerConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Classifier(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ReactionConfig converts the engine section to analyzer parameters.
func (c *Config) ReactionConfig() reaction.Config {
	e := c.Engine
	return reaction.Config{
		PipFactor:        e.PipFactor,
		ThresholdPips:    e.ThresholdPips,
		ReversalFraction: e.ReversalFraction,
		RequireSignFlip:  e.RequireSignFlip,
		MinWindowSamples: e.MinWindowSamples,
	}
}

// ScoringConfig converts the scoring section to scorer parameters.
func (c *Config) ScoringConfig() scoring.Config {
	s := c.Scoring
	grades := scoring.DefaultGrades()
	if len(s.Grades) > 0 {
		grades = make([]scoring.GradeThreshold, len(s.Grades))
		for i, g := range s.Grades {
			grades[i] = scoring.GradeThreshold{Grade: domain.Grade(g.Grade), MinScore: g.MinScore}
		}
	}
	return scoring.Config{
		Weights: scoring.Weights{
			Impact:      s.WeightImpact,
			Persistence: s.WeightPersistence,
			Reliability: s.WeightReliability,
			Importance:  s.WeightImportance,
		},
		ImpactMidpointPips:    s.ImpactMidpointPips,
		ImpactSteepness:       s.ImpactSteepness,
		LatencyOptimalMinutes: s.LatencyOptimalMinutes,
		LatencySlowMinutes:    s.LatencySlowMinutes,
		LatencyFloor:          s.LatencyFloor,
		TTROptimalMinutes:     s.TTROptimalMinutes,
		TTRMinMinutes:         s.TTRMinMinutes,
		TTRFloor:              s.TTRFloor,
		MinReliableN:          s.MinReliableN,
		TargetN:               s.TargetN,
		PartialCredit:         s.PartialCredit,
		ConvictionThreshold:   s.ConvictionThreshold,
		ConvictionPenalty:     s.ConvictionPenalty,
		Grades:                grades,
		Tradability: scoring.TradabilityRules{
			ExcellentMinScore:      s.Tradability.ExcellentMinScore,
			ExcellentMinImpactPips: s.Tradability.ExcellentMinImpactPips,
			ExcellentMinConviction: s.Tradability.ExcellentMinConviction,
			ExcellentMinTTR:        s.Tradability.ExcellentMinTTR,
			ExcellentMinN:          s.Tradability.ExcellentMinN,
			GoodMinScore:           s.Tradability.GoodMinScore,
			FairMinScore:           s.Tradability.FairMinScore,
			PoorMinScore:           s.Tradability.PoorMinScore,
		},
	}
}

// CombinerConfig converts the combiner section to combiner parameters.
func (c *Config) CombinerConfig() combiner.Config {
	m := c.Combiner
	s := m.Session
	return combiner.Config{
		EntryLeadMinutes:         m.EntryLeadMinutes,
		StrongInteractionMinutes: m.StrongInteractionMinutes,
		HighOverlapMinutes:       m.HighOverlapMinutes,
		MediumOverlapMinutes:     m.MediumOverlapMinutes,
		SurpriseScale:            m.SurpriseScale,
		MaxSurpriseFactor:        m.MaxSurpriseFactor,
		ScenarioDeltas:           m.ScenarioDeltas,
		Session: combiner.SessionConfig{
			BaseScore:          s.BaseScore,
			CountBonusPerEvent: s.CountBonusPerEvent,
			MaxCountEvents:     s.MaxCountEvents,
			CoherenceBonus:     s.CoherenceBonus,
			LargeImpactPips:    s.LargeImpactPips,
			LargeImpactBonus:   s.LargeImpactBonus,
			MediumImpactPips:   s.MediumImpactPips,
			MediumImpactBonus:  s.MediumImpactBonus,
			HighOverlapPenalty: s.HighOverlapPenalty,
			CompactSpanMinutes: s.CompactSpanMinutes,
			CompactSpanBonus:   s.CompactSpanBonus,
			WideSpanMinutes:    s.WideSpanMinutes,
			WideSpanPenalty:    s.WideSpanPenalty,
			ExcellentMinScore:  s.ExcellentMinScore,
			FairMinScore:       s.FairMinScore,
		},
	}
}

// FamilyTable returns the configured family table, or the built-in one.
func (c *Config) FamilyTable() []domain.FamilyInfo {
	if len(c.Families) == 0 {
		return classifier.DefaultFamilies
	}
	table := make([]domain.FamilyInfo, len(c.Families))
	for i, f := range c.Families {
		table[i] = domain.FamilyInfo{
			Family:      domain.Family(f.Family),
			Pattern:     f.Pattern,
			Importance:  f.Importance,
			Sensitivity: f.Sensitivity,
			Unit:        f.Unit,
			Description: f.Description,
		}
	}
	return table
}

// Classifier builds the family classifier from the configured table.
func (c *Config) Classifier() (*classifier.Classifier, error) {
	var opts []classifier.Option
	if c.Engine.FallbackFamily != "" {
		opts = append(opts, classifier.WithFallback(domain.Family(c.Engine.FallbackFamily)))
	}
	return classifier.New(c.FamilyTable(), opts...)
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
