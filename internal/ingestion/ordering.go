package ingestion

import (
	"errors"
	"sort"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/lookup"
)

// ErrInvalidOrdering is returned when records are not properly ordered.
var ErrInvalidOrdering = errors.New("records are not in deterministic order")

// SortEvents orders events by (timestamp ASC, event_id ASC).
func SortEvents(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareEvents(events[i], events[j]) < 0
	})
}

// SortPriceSamples orders samples by (symbol ASC, timestamp ASC).
func SortPriceSamples(samples []*domain.PriceSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return comparePriceSamples(samples[i], samples[j]) < 0
	})
}

// ValidateEventOrdering checks that events are strictly ordered with unique IDs.
// Returns ErrInvalidOrdering if not.
func ValidateEventOrdering(events []*domain.Event) error {
	for i := 1; i < len(events); i++ {
		if compareEvents(events[i-1], events[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// ValidatePriceOrdering checks that every symbol's samples are strictly
// ascending with unique timestamps, and that symbols are contiguous.
// Returns ErrInvalidOrdering if not.
func ValidatePriceOrdering(samples []*domain.PriceSample) error {
	seen := make(map[string]struct{})
	start := 0
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && samples[i].Symbol == samples[start].Symbol {
			continue
		}
		symbol := samples[start].Symbol
		if _, dup := seen[symbol]; dup {
			return ErrInvalidOrdering
		}
		seen[symbol] = struct{}{}
		if err := lookup.ValidateOrdered(samples[start:i]); err != nil {
			return ErrInvalidOrdering
		}
		start = i
	}
	return nil
}

// DedupeEvents removes events sharing an event_id, keeping the last occurrence.
// Input must be sorted; output preserves the order. Returns the number dropped.
func DedupeEvents(events []*domain.Event) ([]*domain.Event, int) {
	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if n := len(out); n > 0 && out[n-1].EventID == e.EventID {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	return out, len(events) - len(out)
}

// DedupePriceSamples removes samples sharing (symbol, timestamp), keeping the last occurrence.
// Input must be sorted; output preserves the order. Returns the number dropped.
func DedupePriceSamples(samples []*domain.PriceSample) ([]*domain.PriceSample, int) {
	out := make([]*domain.PriceSample, 0, len(samples))
	for _, s := range samples {
		if n := len(out); n > 0 && out[n-1].Symbol == s.Symbol && out[n-1].TimestampMs == s.TimestampMs {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return out, len(samples) - len(out)
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, event_id ASC)
func compareEvents(a, b *domain.Event) int {
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	if a.EventID != b.EventID {
		if a.EventID < b.EventID {
			return -1
		}
		return 1
	}
	return 0
}

// comparePriceSamples orders by (symbol ASC, timestamp ASC).
func comparePriceSamples(a, b *domain.PriceSample) int {
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	return 0
}
