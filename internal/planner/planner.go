// Package planner builds a combined trading plan for a set of scheduled events.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-impact-lab/internal/classifier"
	"fx-impact-lab/internal/combiner"
	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/storage"
)

// ErrNoEvents is returned when a plan is requested without events.
var ErrNoEvents = errors.New("no events to plan")

// SkipMissingEvent is the skip reason of an Input without an event.
const SkipMissingEvent = "missing event"

// GroupSource returns the statistics of one group.
// Implemented by *orchestrator.Orchestrator.
type GroupSource interface {
	ComputeGroup(ctx context.Context, key domain.StatsKey) (*domain.FamilyStats, error)
}

// Input is one event to plan, with an optional surprise override.
type Input struct {
	Event    *domain.Event
	Surprise *float64 // nil uses actual minus forecast (or previous)
}

// Skipped records an event left out of the plan.
type Skipped struct {
	EventID string
	Title   string
	Reason  string
}

// Plan is the outcome of planning one set of events.
type Plan struct {
	Prediction *domain.CombinedPrediction // nil when no event could be predicted
	Skipped    []Skipped
}

// Warnings returns the prediction warnings followed by one line per skipped event.
func (p *Plan) Warnings() []string {
	var out []string
	if p.Prediction != nil {
		out = append(out, p.Prediction.Warnings...)
	}
	for _, s := range p.Skipped {
		out = append(out, fmt.Sprintf("skipped %q: %s", s.Title, s.Reason))
	}
	return out
}

// Planner turns events into predictions using stored family statistics.
type Planner struct {
	groups       GroupSource
	classifier   *classifier.Classifier
	combiner     *combiner.Combiner
	horizon      int
	lookbackDays int
	log          *logger.Logger
}

// New creates a Planner. horizon is the stats horizon used for predictions.
func New(groups GroupSource, c *classifier.Classifier, comb *combiner.Combiner, horizon, lookbackDays int, log *logger.Logger) *Planner {
	if log == nil {
		log = logger.Nop()
	}
	return &Planner{
		groups:       groups,
		classifier:   c,
		combiner:     comb,
		horizon:      horizon,
		lookbackDays: lookbackDays,
		log:          log.With(logger.String("component", "planner")),
	}
}

// Plan predicts every input and combines the predictions.
// Events that cannot be predicted, and inputs without an event, are reported in
// Skipped rather than failing the plan.
// Country statistics are used when sufficient, otherwise the all-country group.
func (p *Planner) Plan(ctx context.Context, inputs []Input) (*Plan, error) {
	if len(inputs) == 0 {
		return nil, ErrNoEvents
	}

	plan := &Plan{}
	predictions := make([]domain.EventPrediction, 0, len(inputs))
	for _, in := range inputs {
		e := in.Event
		if e == nil {
			plan.Skipped = append(plan.Skipped, Skipped{Reason: SkipMissingEvent})
			continue
		}
		family, ok := p.classifier.ClassifyEvent(e)
		if !ok {
			plan.Skipped = append(plan.Skipped, Skipped{EventID: e.EventID, Title: e.Title, Reason: "unclassified"})
			continue
		}

		stats, err := p.stats(ctx, family, e.Country)
		if err != nil {
			return nil, err
		}

		var pred *domain.EventPrediction
		if in.Surprise != nil {
			pred, err = p.combiner.PredictWithSurprise(e, stats, *in.Surprise)
		} else {
			pred, err = p.combiner.Predict(e, stats)
		}
		if err != nil {
			if !isPredictionSkip(err) {
				return nil, err
			}
			plan.Skipped = append(plan.Skipped, Skipped{EventID: e.EventID, Title: e.Title, Reason: err.Error()})
			continue
		}
		if info, ok := p.classifier.Info(family); ok {
			pred.Sensitivity = info.Sensitivity
		}
		predictions = append(predictions, *pred)
	}

	if len(predictions) == 0 {
		p.log.Info("no predictable events", logger.Int("skipped", len(plan.Skipped)))
		return plan, nil
	}

	combined, err := p.combiner.Combine(predictions)
	if err != nil {
		return nil, err
	}
	plan.Prediction = combined
	p.log.Debug("plan built",
		logger.Int("events", len(predictions)),
		logger.Int("skipped", len(plan.Skipped)),
		logger.Float64("combined_pips", combined.CombinedImpactPips),
	)
	return plan, nil
}

func (p *Planner) stats(ctx context.Context, family domain.Family, country string) (*domain.FamilyStats, error) {
	key := domain.StatsKey{Family: family, Country: country, HorizonMinutes: p.horizon, LookbackDays: p.lookbackDays}
	if country != "" {
		stats, err := p.groups.ComputeGroup(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", key, err)
		}
		if stats.Sufficient {
			return stats, nil
		}
	}
	key.Country = ""
	stats, err := p.groups.ComputeGroup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("stats for %s: %w", key, err)
	}
	return stats, nil
}

func isPredictionSkip(err error) bool {
	return errors.Is(err, combiner.ErrNoStats) ||
		errors.Is(err, combiner.ErrMissingSurprise) ||
		errors.Is(err, combiner.ErrZeroSurprise)
}

// EventsForDate loads the events released on the UTC calendar day of date.
func EventsForDate(ctx context.Context, store storage.EventStore, date time.Time) ([]*domain.Event, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start := day.UnixMilli()
	end := day.AddDate(0, 0, 1).UnixMilli() - 1
	events, err := store.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", day.Format(time.DateOnly), err)
	}
	return events, nil
}

// Inputs wraps events without surprise overrides.
func Inputs(events []*domain.Event) []Input {
	inputs := make([]Input, len(events))
	for i, e := range events {
		inputs[i] = Input{Event: e}
	}
	return inputs
}
