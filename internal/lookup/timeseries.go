package lookup

import (
	"errors"
	"sort"

	"fx-impact-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoPriceData        = errors.New("no price data available")
	ErrMissingAnchor      = errors.New("no price at or before event")
	ErrInsufficientWindow = errors.New("insufficient samples in post-event window")
	ErrUnorderedSamples   = errors.New("price samples not strictly ascending")
)

// DefaultMinWindowSamples is the minimum post-event sample count.
const DefaultMinWindowSamples = 3

// AnchorAt returns the last sample with timestamp at or before target.
// Samples must be sorted ascending by timestamp.
// Returns ErrNoPriceData if slice is empty and ErrMissingAnchor if every
// sample is after target.
func AnchorAt(target int64, samples []*domain.PriceSample) (*domain.PriceSample, error) {
	if len(samples) == 0 {
		return nil, ErrNoPriceData
	}

	// First index with timestamp > target
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].TimestampMs > target
	})
	if idx == 0 {
		return nil, ErrMissingAnchor
	}

	return samples[idx-1], nil
}

// Window returns samples with timestamp in (eventTs, eventTs+horizon].
// Samples must be sorted ascending by timestamp.
// Returns ErrInsufficientWindow when fewer than minSamples fall inside.
func Window(eventTs int64, horizonMinutes int, samples []*domain.PriceSample, minSamples int) ([]*domain.PriceSample, error) {
	end := eventTs + int64(horizonMinutes)*domain.MillisPerMinute

	start := sort.Search(len(samples), func(i int) bool {
		return samples[i].TimestampMs > eventTs
	})
	stop := sort.Search(len(samples), func(i int) bool {
		return samples[i].TimestampMs > end
	})

	if stop-start < minSamples || stop <= start {
		return nil, ErrInsufficientWindow
	}

	return samples[start:stop], nil
}

// ValidateOrdered checks that samples are strictly ascending with no duplicate timestamps.
func ValidateOrdered(samples []*domain.PriceSample) error {
	for i := 1; i < len(samples); i++ {
		if samples[i].TimestampMs <= samples[i-1].TimestampMs {
			return ErrUnorderedSamples
		}
	}
	return nil
}
