package domain

import "time"

// Event represents one scheduled macroeconomic announcement.
// Corresponds to events table in PostgreSQL.
type Event struct {
	EventID     string   // PRIMARY KEY, deterministic hash of (timestamp, country, title)
	TimestampMs int64    // release time, Unix milliseconds UTC
	Country     string   // ISO country code, e.g. "US"
	Currency    string   // affected currency, e.g. "USD"
	Title       string   // provider event title
	EventKey    string   // provider event key
	Label       string   // free-text label
	Type        string   // provider event type
	Family      Family   // canonical family, empty when unclassified
	Importance  int      // provider importance 1..3, 0 when unknown
	Unit        string   // unit of the numeric fields (%, K, ...)
	Actual      *float64 // released value (nullable)
	Forecast    *float64 // consensus estimate (nullable)
	Previous    *float64 // prior release (nullable)
}

// Time returns the release time as UTC.
func (e *Event) Time() time.Time {
	return time.UnixMilli(e.TimestampMs).UTC()
}

// ClassificationText returns the raw text fields in classification order.
func (e *Event) ClassificationText() []string {
	return []string{e.Title, e.EventKey, e.Label, e.Type}
}

// Surprise returns actual minus the reference value.
// Reference is the forecast when present, otherwise the previous release.
// Returns false when actual or both references are missing.
func (e *Event) Surprise() (float64, bool) {
	if e.Actual == nil {
		return 0, false
	}
	switch {
	case e.Forecast != nil:
		return *e.Actual - *e.Forecast, true
	case e.Previous != nil:
		return *e.Actual - *e.Previous, true
	default:
		return 0, false
	}
}
