package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"fx-impact-lab/internal/domain"
)

// PlanDocument is the JSON trading plan for the events of one date.
type PlanDocument struct {
	Date               string          `json:"date"`
	NEvents            int             `json:"n_events"`
	CombinedImpactPips float64         `json:"combined_impact_pips"`
	Direction          string          `json:"direction"`
	LatencyMinutes     float64         `json:"latency_minutes"`
	TTRMinutes         float64         `json:"ttr_minutes"`
	EntryTime          string          `json:"entry_time"`
	ReactionTime       string          `json:"reaction_time"`
	ExitTime           string          `json:"exit_time"`
	Coherence          string          `json:"coherence"`
	StrongInteraction  bool            `json:"strong_interaction"`
	SessionScore       float64         `json:"session_score"`
	SessionLabel       string          `json:"session_label"`
	Overlaps           []PlanOverlap   `json:"overlaps"`
	Scenarios          []PlanScenario  `json:"scenarios"`
	Warnings           []string        `json:"warnings"`
	Events             []PlanEventItem `json:"events"`
}

// PlanEventItem is one constituent event of a plan.
type PlanEventItem struct {
	EventID        string  `json:"event_id"`
	Title          string  `json:"title"`
	Family         string  `json:"family"`
	Time           string  `json:"time"`
	Surprise       float64 `json:"surprise"`
	PredictedPips  float64 `json:"predicted_pips"`
	Direction      string  `json:"direction"`
	LatencyMinutes float64 `json:"latency_minutes"`
	TTRMinutes     float64 `json:"ttr_minutes"`
}

// PlanOverlap reports two events whose reactions overlap.
type PlanOverlap struct {
	First          string  `json:"first_event_id"`
	Second         string  `json:"second_event_id"`
	OverlapMinutes float64 `json:"overlap_minutes"`
	Severity       string  `json:"severity"`
}

// PlanScenario is one row of the surprise scenario table.
type PlanScenario struct {
	SurpriseDelta      float64 `json:"surprise_delta"`
	CombinedImpactPips float64 `json:"combined_impact_pips"`
	Direction          string  `json:"direction"`
	EventCount         int     `json:"event_count"`
}

// NewPlanDocument converts a combined prediction into its JSON form.
// Pips and minutes are rounded to one decimal.
func NewPlanDocument(date time.Time, p *domain.CombinedPrediction) PlanDocument {
	doc := PlanDocument{
		Date:               date.UTC().Format(time.DateOnly),
		NEvents:            len(p.Events),
		CombinedImpactPips: round1(p.CombinedImpactPips),
		Direction:          p.Direction.String(),
		LatencyMinutes:     round1(p.WeightedLatencyMinutes),
		TTRMinutes:         round1(p.CombinedTTRMinutes),
		EntryTime:          formatPlanTime(p.Suggested.EntryTimeMs),
		ReactionTime:       formatPlanTime(p.Suggested.ReactionTimeMs),
		ExitTime:           formatPlanTime(p.Suggested.ExitTimeMs),
		Coherence:          string(p.Coherence),
		StrongInteraction:  p.StrongInteraction,
		SessionScore:       round1(p.Session.Score),
		SessionLabel:       p.Session.Label,
		Overlaps:           make([]PlanOverlap, 0, len(p.Overlaps)),
		Scenarios:          make([]PlanScenario, 0, len(p.Scenarios)),
		Warnings:           append([]string{}, p.Warnings...),
		Events:             make([]PlanEventItem, 0, len(p.Events)),
	}
	for _, o := range p.Overlaps {
		doc.Overlaps = append(doc.Overlaps, PlanOverlap{
			First:          o.FirstEventID,
			Second:         o.SecondEventID,
			OverlapMinutes: round1(o.OverlapMinutes),
			Severity:       o.Severity,
		})
	}
	for _, s := range p.Scenarios {
		doc.Scenarios = append(doc.Scenarios, PlanScenario{
			SurpriseDelta:      s.SurpriseDelta,
			CombinedImpactPips: round1(s.CombinedImpactPips),
			Direction:          s.Direction.String(),
			EventCount:         s.EventCount,
		})
	}
	for _, e := range p.Events {
		doc.Events = append(doc.Events, PlanEventItem{
			EventID:        e.EventID,
			Title:          e.Title,
			Family:         e.Family.String(),
			Time:           formatPlanTime(e.TimestampMs),
			Surprise:       e.Surprise,
			PredictedPips:  round1(e.PredictedPips),
			Direction:      e.Direction.String(),
			LatencyMinutes: round1(e.LatencyMinutes),
			TTRMinutes:     round1(e.TTRMinutes),
		})
	}
	return doc
}

// RenderPlanJSON renders the plan document as indented JSON.
func RenderPlanJSON(date time.Time, p *domain.CombinedPrediction) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("nil prediction")
	}
	data, err := json.MarshalIndent(NewPlanDocument(date, p), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	return append(data, '\n'), nil
}

func formatPlanTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
