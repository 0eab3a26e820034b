// Package combiner merges the predicted reactions of concurrently scheduled events.
package combiner

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"fx-impact-lab/internal/domain"
)

// ErrNoPredictions is returned when Combine receives no events.
var ErrNoPredictions = errors.New("no event predictions to combine")

// Combiner merges event predictions. Stateless after construction.
type Combiner struct {
	cfg Config
}

// New validates cfg and returns a Combiner.
func New(cfg Config) (*Combiner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deltas := make([]float64, len(cfg.ScenarioDeltas))
	copy(deltas, cfg.ScenarioDeltas)
	cfg.ScenarioDeltas = deltas
	return &Combiner{cfg: cfg}, nil
}

// Config returns the combiner parameters.
func (c *Combiner) Config() Config {
	return c.cfg
}

// Combine merges predictions into one CombinedPrediction.
// Input order does not matter: events are processed by (timestamp, event_id).
func (c *Combiner) Combine(predictions []domain.EventPrediction) (*domain.CombinedPrediction, error) {
	if len(predictions) == 0 {
		return nil, ErrNoPredictions
	}

	events := make([]domain.EventPrediction, len(predictions))
	copy(events, predictions)
	sortPredictions(events)

	combined := 0.0
	for _, p := range events {
		combined += p.SignedImpact()
	}

	first := events[0].TimestampMs
	span := domain.MinutesBetween(first, events[len(events)-1].TimestampMs)

	result := &domain.CombinedPrediction{
		Events:                 events,
		CombinedImpactPips:     combined,
		Direction:              impactDirection(combined),
		WeightedLatencyMinutes: weightedLatency(events),
		CombinedTTRMinutes:     minTTR(events),
		Coherence:              coherence(events),
		TimeSpanMinutes:        span,
		StrongInteraction:      len(events) > 1 && span <= c.cfg.StrongInteractionMinutes,
	}

	result.Overlaps = c.DetectOverlaps(events)
	result.Suggested = c.suggestedTiming(first, result.WeightedLatencyMinutes, result.CombinedTTRMinutes)
	result.Session = c.sessionScore(result)
	result.Scenarios = c.scenarios(events)
	result.Warnings = warnings(result)

	return result, nil
}

// DetectOverlaps returns every pair (i, j), i before j in (timestamp, event_id) order,
// where j is released before i's expected reversal at t_i + ttr_i.
func (c *Combiner) DetectOverlaps(predictions []domain.EventPrediction) []domain.Overlap {
	events := make([]domain.EventPrediction, len(predictions))
	copy(events, predictions)
	sortPredictions(events)

	var overlaps []domain.Overlap
	for i := 0; i < len(events); i++ {
		reversalMs := events[i].TimestampMs + int64(math.Round(events[i].TTRMinutes*float64(domain.MillisPerMinute)))
		for j := i + 1; j < len(events); j++ {
			if events[j].TimestampMs >= reversalMs {
				break
			}
			minutes := domain.MinutesBetween(events[j].TimestampMs, reversalMs)
			overlaps = append(overlaps, domain.Overlap{
				FirstEventID:   events[i].EventID,
				SecondEventID:  events[j].EventID,
				OverlapMinutes: minutes,
				Severity:       c.severity(minutes),
			})
		}
	}
	return overlaps
}

func (c *Combiner) severity(minutes float64) string {
	switch {
	case minutes >= c.cfg.HighOverlapMinutes:
		return domain.SeverityHigh
	case minutes >= c.cfg.MediumOverlapMinutes:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func (c *Combiner) suggestedTiming(firstMs int64, latency, ttr float64) domain.SuggestedTiming {
	entry := -c.cfg.EntryLeadMinutes
	return domain.SuggestedTiming{
		EntryOffsetMinutes:    entry,
		ReactionOffsetMinutes: latency,
		ExitOffsetMinutes:     ttr,
		EntryTimeMs:           offsetMs(firstMs, entry),
		ReactionTimeMs:        offsetMs(firstMs, latency),
		ExitTimeMs:            offsetMs(firstMs, ttr),
	}
}

func (c *Combiner) sessionScore(r *domain.CombinedPrediction) domain.SessionScore {
	cfg := c.cfg.Session
	s := domain.SessionScore{}

	counted := len(r.Events) - 1
	if counted > cfg.MaxCountEvents {
		counted = cfg.MaxCountEvents
	}
	s.CountBonus = cfg.CountBonusPerEvent * float64(counted)

	switch r.Coherence {
	case domain.CoherenceAmplification:
		s.CoherenceBonus = cfg.CoherenceBonus
	case domain.CoherenceAntagonism:
		s.CoherenceBonus = -cfg.CoherenceBonus
	}

	magnitude := math.Abs(r.CombinedImpactPips)
	switch {
	case magnitude >= cfg.LargeImpactPips:
		s.MagnitudeBonus = cfg.LargeImpactBonus
	case magnitude >= cfg.MediumImpactPips:
		s.MagnitudeBonus = cfg.MediumImpactBonus
	}

	for _, o := range r.Overlaps {
		if o.Severity == domain.SeverityHigh {
			s.OverlapPenalty -= cfg.HighOverlapPenalty
		}
	}

	if len(r.Events) > 1 {
		switch {
		case r.TimeSpanMinutes <= cfg.CompactSpanMinutes:
			s.TimeSpanBonus = cfg.CompactSpanBonus
		case r.TimeSpanMinutes > cfg.WideSpanMinutes:
			s.TimeSpanBonus = -cfg.WideSpanPenalty
		}
	}

	total := cfg.BaseScore + s.CountBonus + s.CoherenceBonus + s.MagnitudeBonus + s.OverlapPenalty + s.TimeSpanBonus
	s.Score = math.Max(0, math.Min(100, total))

	switch {
	case s.Score >= cfg.ExcellentMinScore:
		s.Label = SessionExcellent
	case s.Score >= cfg.FairMinScore:
		s.Label = SessionFair
	default:
		s.Label = SessionDifficult
	}
	return s
}

// scenarios recomputes the combined impact with every surprise shifted by each delta.
// Events whose shifted surprise is zero have no direction and are left out.
func (c *Combiner) scenarios(events []domain.EventPrediction) []domain.Scenario {
	out := make([]domain.Scenario, 0, len(c.cfg.ScenarioDeltas))
	for _, delta := range c.cfg.ScenarioDeltas {
		sc := domain.Scenario{SurpriseDelta: delta, Direction: domain.DirectionUp}
		latencySum := 0.0
		for _, p := range events {
			surprise := p.Surprise + delta
			if surprise == 0 {
				continue
			}
			sc.CombinedImpactPips += c.predictedPips(p.BaseImpactPips, surprise) * float64(surpriseDirection(surprise))
			latencySum += p.LatencyMinutes
			if sc.EventCount == 0 || p.TTRMinutes < sc.TTRMinutes {
				sc.TTRMinutes = p.TTRMinutes
			}
			sc.EventCount++
		}
		if sc.EventCount > 0 {
			sc.LatencyMinutes = latencySum / float64(sc.EventCount)
			sc.Direction = impactDirection(sc.CombinedImpactPips)
		}
		out = append(out, sc)
	}
	return out
}

func warnings(r *domain.CombinedPrediction) []string {
	var out []string
	if r.Coherence == domain.CoherenceAntagonism {
		out = append(out, "constituent directions conflict, combined impact is reduced")
	}
	if len(r.Events) > 1 && r.CombinedImpactPips == 0 {
		out = append(out, "constituent impacts cancel out")
	}
	for _, o := range r.Overlaps {
		if o.Severity == domain.SeverityHigh {
			out = append(out, fmt.Sprintf("%s is released %.0f min before the expected reversal of %s",
				o.SecondEventID, o.OverlapMinutes, o.FirstEventID))
		}
	}
	return out
}

// weightedLatency is the impact-weighted mean latency, or the plain mean
// when every predicted impact is zero.
func weightedLatency(events []domain.EventPrediction) float64 {
	weightSum := 0.0
	weighted := 0.0
	plain := 0.0
	for _, p := range events {
		weightSum += p.PredictedPips
		weighted += p.LatencyMinutes * p.PredictedPips
		plain += p.LatencyMinutes
	}
	if weightSum == 0 {
		return plain / float64(len(events))
	}
	return weighted / weightSum
}

func minTTR(events []domain.EventPrediction) float64 {
	ttr := events[0].TTRMinutes
	for _, p := range events[1:] {
		if p.TTRMinutes < ttr {
			ttr = p.TTRMinutes
		}
	}
	return ttr
}

func coherence(events []domain.EventPrediction) domain.Coherence {
	if len(events) == 1 {
		return domain.CoherenceSingle
	}
	for _, p := range events[1:] {
		if p.Direction != events[0].Direction {
			return domain.CoherenceAntagonism
		}
	}
	return domain.CoherenceAmplification
}

func impactDirection(signed float64) domain.Direction {
	if signed < 0 {
		return domain.DirectionDown
	}
	return domain.DirectionUp
}

func sortPredictions(events []domain.EventPrediction) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		return events[i].EventID < events[j].EventID
	})
}

func offsetMs(baseMs int64, minutes float64) int64 {
	return baseMs + int64(math.Round(minutes*float64(domain.MillisPerMinute)))
}
