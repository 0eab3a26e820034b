package orchestrator

import (
	"errors"
	"sort"

	"fx-impact-lab/internal/lookup"
	"fx-impact-lab/internal/reaction"
)

// SkipReason names why an event (or event-horizon pair) produced no reaction.
type SkipReason string

const (
	SkipUnclassified       SkipReason = "unclassified"
	SkipCountryFiltered    SkipReason = "country_filtered"
	SkipMissingAnchor      SkipReason = "missing_anchor"
	SkipInsufficientWindow SkipReason = "insufficient_window"
	SkipDegenerateWindow   SkipReason = "degenerate_window"
	SkipInvalidEntry       SkipReason = "invalid_entry"
)

// SkipReport counts skipped events by reason.
type SkipReport struct {
	Counts map[SkipReason]int
}

// SkipCount is one row of a SkipReport.
type SkipCount struct {
	Reason SkipReason
	Count  int
}

// NewSkipReport creates an empty report.
func NewSkipReport() SkipReport {
	return SkipReport{Counts: make(map[SkipReason]int)}
}

// Add counts one skip.
func (r *SkipReport) Add(reason SkipReason) {
	if r.Counts == nil {
		r.Counts = make(map[SkipReason]int)
	}
	r.Counts[reason]++
}

// Merge adds all counts of other.
func (r *SkipReport) Merge(other SkipReport) {
	if r.Counts == nil {
		r.Counts = make(map[SkipReason]int)
	}
	for reason, n := range other.Counts {
		r.Counts[reason] += n
	}
}

// Total returns the number of skips.
func (r SkipReport) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// Sorted returns counts by descending count, then reason.
func (r SkipReport) Sorted() []SkipCount {
	out := make([]SkipCount, 0, len(r.Counts))
	for reason, n := range r.Counts {
		out = append(out, SkipCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// skipReasonFor maps analysis errors to reasons. Unknown errors return false.
func skipReasonFor(err error) (SkipReason, bool) {
	switch {
	case errors.Is(err, lookup.ErrMissingAnchor), errors.Is(err, lookup.ErrNoPriceData):
		return SkipMissingAnchor, true
	case errors.Is(err, lookup.ErrInsufficientWindow):
		return SkipInsufficientWindow, true
	case errors.Is(err, reaction.ErrDegenerateWindow):
		return SkipDegenerateWindow, true
	case errors.Is(err, reaction.ErrInvalidEntry):
		return SkipInvalidEntry, true
	default:
		return "", false
	}
}
