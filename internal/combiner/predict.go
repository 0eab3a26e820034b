package combiner

import (
	"errors"
	"math"

	"fx-impact-lab/internal/domain"
)

// Prediction errors.
var (
	ErrNoStats         = errors.New("no usable family statistics")
	ErrMissingSurprise = errors.New("event has no actual or reference value")
	ErrZeroSurprise    = errors.New("surprise is zero, direction undefined")
)

// Predict derives the expected reaction of an event from its family statistics.
// The magnitude scales the historical MFE p80 by the surprise size:
// predicted = p80 * (0.5 + 0.5 * min(|surprise|/scale, cap)).
func (c *Combiner) Predict(e *domain.Event, stats *domain.FamilyStats) (*domain.EventPrediction, error) {
	if stats == nil || stats.N == 0 || !stats.Sufficient {
		return nil, ErrNoStats
	}
	surprise, ok := e.Surprise()
	if !ok {
		return nil, ErrMissingSurprise
	}
	return c.PredictWithSurprise(e, stats, surprise)
}

// PredictWithSurprise is Predict with an explicit surprise value.
func (c *Combiner) PredictWithSurprise(e *domain.Event, stats *domain.FamilyStats, surprise float64) (*domain.EventPrediction, error) {
	if stats == nil || stats.N == 0 || !stats.Sufficient {
		return nil, ErrNoStats
	}
	if surprise == 0 {
		return nil, ErrZeroSurprise
	}

	return &domain.EventPrediction{
		EventID:        e.EventID,
		Title:          e.Title,
		Family:         stats.Family,
		TimestampMs:    e.TimestampMs,
		Surprise:       surprise,
		BaseImpactPips: stats.MFEP80,
		PredictedPips:  c.predictedPips(stats.MFEP80, surprise),
		Direction:      surpriseDirection(surprise),
		LatencyMinutes: stats.LatencyMedian,
		LatencyP20:     stats.LatencyP20,
		LatencyP80:     stats.LatencyP80,
		TTRMinutes:     stats.TTRMedian,
	}, nil
}

func (c *Combiner) predictedPips(base, surprise float64) float64 {
	factor := math.Min(math.Abs(surprise)/c.cfg.SurpriseScale, c.cfg.MaxSurpriseFactor)
	return base * (0.5 + 0.5*factor)
}

func surpriseDirection(surprise float64) domain.Direction {
	if surprise < 0 {
		return domain.DirectionDown
	}
	return domain.DirectionUp
}
