package domain

// EventPrediction is the expected reaction of one scheduled event.
type EventPrediction struct {
	EventID        string
	Title          string
	Family         Family
	TimestampMs    int64
	Surprise       float64
	BaseImpactPips float64   // historical MFE p80 of the family
	PredictedPips  float64   // unsigned magnitude
	Direction      Direction // expected sign
	Sensitivity    float64   // pips per unit surprise from the family table, informational
	LatencyMinutes float64
	LatencyP20     float64
	LatencyP80     float64
	TTRMinutes     float64
}

// SignedImpact returns PredictedPips with the expected sign applied.
func (p EventPrediction) SignedImpact() float64 {
	return p.PredictedPips * float64(p.Direction)
}

// Coherence describes how constituent directions combine.
type Coherence string

const (
	CoherenceSingle        Coherence = "single"
	CoherenceAmplification Coherence = "amplification"
	CoherenceAntagonism    Coherence = "antagonism"
)

// Overlap severity tiers.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Overlap records that Second is released while First is still expected to move.
type Overlap struct {
	FirstEventID   string
	SecondEventID  string
	OverlapMinutes float64
	Severity       string
}

// SuggestedTiming holds entry/reaction/exit offsets from the first event.
type SuggestedTiming struct {
	EntryOffsetMinutes    float64
	ReactionOffsetMinutes float64
	ExitOffsetMinutes     float64
	EntryTimeMs           int64
	ReactionTimeMs        int64
	ExitTimeMs            int64
}

// SessionScore is the session-level tradability heuristic.
type SessionScore struct {
	Score          float64 // [0,100]
	Label          string
	CountBonus     float64
	CoherenceBonus float64 // negative when directions conflict
	MagnitudeBonus float64
	OverlapPenalty float64 // non-positive
	TimeSpanBonus  float64 // negative for wide windows
}

// Scenario is the combined outcome for one surprise shift.
type Scenario struct {
	SurpriseDelta      float64
	CombinedImpactPips float64 // signed
	Direction          Direction
	LatencyMinutes     float64 // mean over included events
	TTRMinutes         float64 // min over included events
	EventCount         int     // events with a non-zero shifted surprise
}

// CombinedPrediction merges several concurrent event predictions.
type CombinedPrediction struct {
	Events []EventPrediction // sorted by time

	CombinedImpactPips     float64 // signed
	Direction              Direction
	WeightedLatencyMinutes float64
	CombinedTTRMinutes     float64
	Coherence              Coherence
	TimeSpanMinutes        float64
	StrongInteraction      bool

	Overlaps  []Overlap
	Suggested SuggestedTiming
	Session   SessionScore
	Scenarios []Scenario
	Warnings  []string
}
