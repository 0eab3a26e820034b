// Package scoring normalizes family statistics into a 0-100 composite,
// a letter grade and a tradability class.
package scoring

import (
	"math"
	"sort"

	"fx-impact-lab/internal/domain"
)

// Scorer computes Scores. Stateless after construction.
type Scorer struct {
	cfg Config
}

// NewScorer validates cfg and returns a Scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grades := make([]GradeThreshold, len(cfg.Grades))
	copy(grades, cfg.Grades)
	cfg.Grades = grades
	return &Scorer{cfg: cfg}, nil
}

// Config returns the scorer parameters.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score rates one group. importanceTier is in [0,1] and is clamped.
// Empty or insufficient groups get a zero composite with grade and tradability N/A.
func (s *Scorer) Score(stats *domain.FamilyStats, importanceTier float64) *domain.Score {
	if stats == nil {
		return emptyScore(domain.StatsKey{}, 0)
	}
	if stats.N == 0 || !stats.Sufficient {
		return emptyScore(stats.StatsKey, stats.N)
	}

	impact := s.impactScore(stats.MFEP80)
	latency := s.latencyScore(stats.LatencyMedian)
	ttr := s.ttrScore(stats.TTRMedian)
	persistence := (latency + ttr) / 2
	reliability := s.ReliabilityScore(stats.N)
	importance := clamp01(importanceTier)

	w := s.cfg.Weights
	composite := 100 * (w.Impact*impact + w.Persistence*persistence + w.Reliability*reliability + w.Importance*importance)

	penalized := stats.Conviction() < s.cfg.ConvictionThreshold
	if penalized {
		composite *= s.cfg.ConvictionPenalty
	}
	composite = clamp(composite, 0, 100)

	return &domain.Score{
		Family:         stats.Family,
		Country:        stats.Country,
		HorizonMinutes: stats.HorizonMinutes,
		Composite:      composite,
		Components: domain.ScoreComponents{
			Impact:      100 * impact,
			Persistence: 100 * persistence,
			Reliability: 100 * reliability,
			Importance:  100 * importance,
		},
		LatencyScore:      latency,
		TTRScore:          ttr,
		ConvictionPenalty: penalized,
		Grade:             s.grade(composite),
		Tradability:       s.tradability(composite, stats),
		N:                 stats.N,
		MFEP80:            stats.MFEP80,
		LatencyMedian:     stats.LatencyMedian,
		TTRMedian:         stats.TTRMedian,
		PUp:               stats.PUp,
	}
}

// impactScore is a logistic curve over MFE p80.
func (s *Scorer) impactScore(mfeP80 float64) float64 {
	x := -s.cfg.ImpactSteepness * (mfeP80 - s.cfg.ImpactMidpointPips)
	return clamp01(1 / (1 + math.Exp(x)))
}

// latencyScore falls linearly from 1.0 at the optimal latency to the floor at the slow latency.
func (s *Scorer) latencyScore(latency float64) float64 {
	c := s.cfg
	switch {
	case latency <= c.LatencyOptimalMinutes:
		return 1
	case latency >= c.LatencySlowMinutes:
		return c.LatencyFloor
	}
	frac := (latency - c.LatencyOptimalMinutes) / (c.LatencySlowMinutes - c.LatencyOptimalMinutes)
	return 1 - (1-c.LatencyFloor)*frac
}

// ttrScore rises linearly from the floor at the minimum TTR to 1.0 at the optimal TTR.
func (s *Scorer) ttrScore(ttr float64) float64 {
	c := s.cfg
	switch {
	case ttr >= c.TTROptimalMinutes:
		return 1
	case ttr <= c.TTRMinMinutes:
		return c.TTRFloor
	}
	frac := (ttr - c.TTRMinMinutes) / (c.TTROptimalMinutes - c.TTRMinMinutes)
	return c.TTRFloor + (1-c.TTRFloor)*frac
}

// ReliabilityScore returns min(1, n/TargetN) once n reaches MinReliableN,
// otherwise n/MinReliableN scaled by the partial credit.
func (s *Scorer) ReliabilityScore(n int) float64 {
	c := s.cfg
	if n <= 0 {
		return 0
	}
	if n >= c.MinReliableN {
		return math.Min(1, float64(n)/float64(c.TargetN))
	}
	return float64(n) / float64(c.MinReliableN) * c.PartialCredit
}

func (s *Scorer) grade(composite float64) domain.Grade {
	for _, g := range s.cfg.Grades {
		if composite >= g.MinScore {
			return g.Grade
		}
	}
	return s.cfg.Grades[len(s.cfg.Grades)-1].Grade
}

func (s *Scorer) tradability(composite float64, stats *domain.FamilyStats) domain.Tradability {
	t := s.cfg.Tradability
	hasImpact := stats.MFEP80 >= t.ExcellentMinImpactPips
	hasDirection := stats.Conviction() >= t.ExcellentMinConviction
	hasPersistence := stats.TTRMedian >= t.ExcellentMinTTR
	isReliable := stats.N >= t.ExcellentMinN

	switch {
	case composite >= t.ExcellentMinScore && hasImpact && hasDirection && hasPersistence && isReliable:
		return domain.TradabilityExcellent
	case composite >= t.GoodMinScore && hasImpact && hasDirection:
		return domain.TradabilityGood
	case composite >= t.FairMinScore && hasImpact:
		return domain.TradabilityFair
	case composite >= t.PoorMinScore:
		return domain.TradabilityPoor
	default:
		return domain.TradabilityAvoid
	}
}

func emptyScore(key domain.StatsKey, n int) *domain.Score {
	return &domain.Score{
		Family:         key.Family,
		Country:        key.Country,
		HorizonMinutes: key.HorizonMinutes,
		Grade:          domain.GradeNone,
		Tradability:    domain.TradabilityNone,
		N:              n,
	}
}

// Rank sorts scores in place by composite DESC, then family, country, horizon ASC.
func Rank(scores []*domain.Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		return a.HorizonMinutes < b.HorizonMinutes
	})
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
