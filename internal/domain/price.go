package domain

// PriceSample is one close price of an instrument at a bar timestamp.
// Corresponds to price_samples table in ClickHouse.
type PriceSample struct {
	Symbol      string  // instrument, e.g. "EURUSD"
	TimestampMs int64   // bar timestamp, Unix milliseconds UTC
	Close       float64 // close price
}

// MinutesBetween returns the signed offset from start to end in minutes.
func MinutesBetween(startMs, endMs int64) float64 {
	return float64(endMs-startMs) / float64(MillisPerMinute)
}

// MillisPerMinute is the number of milliseconds in one minute.
const MillisPerMinute int64 = 60_000
