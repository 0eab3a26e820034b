package domain

// Direction is the sign of the peak excursion.
type Direction int

const (
	DirectionDown Direction = -1
	DirectionUp   Direction = 1
)

// String returns "UP" or "DOWN".
func (d Direction) String() string {
	if d == DirectionDown {
		return "DOWN"
	}
	return "UP"
}

// ReactionMetrics is the reaction of one event over one horizon.
// Pure value record keyed by (EventID, HorizonMinutes).
// Corresponds to reaction_metrics table in ClickHouse.
type ReactionMetrics struct {
	EventID        string
	Family         Family
	Country        string
	EventTimeMs    int64
	HorizonMinutes int

	EntryPrice      float64   // anchor close at or before the event
	LatencyMinutes  float64   // first |excursion| >= threshold, horizon when none
	PeakTimeMinutes float64   // offset of the first sample reaching MFE
	MFEPips         float64   // max |excursion| in pips
	Direction       Direction // sign of the excursion at peak
	TTRMinutes      float64   // from peak to first retrace, horizon - peak when none
	Reacted         bool      // threshold was crossed inside the window
	SampleCount     int       // window samples analyzed
}
