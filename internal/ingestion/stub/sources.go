// Package stub provides fixed in-memory feed sources for tests.
package stub

import (
	"context"

	"fx-impact-lab/internal/domain"
)

// StubEventSource returns fixed in-memory events.
// Events can be intentionally unordered to test sorting.
// Implements ingestion.EventSource.
type StubEventSource struct {
	events []*domain.Event
	err    error
}

// NewStubEventSource creates a source serving events.
func NewStubEventSource(events []*domain.Event) *StubEventSource {
	return &StubEventSource{events: events}
}

// WithError makes every Fetch fail with err.
func (s *StubEventSource) WithError(err error) *StubEventSource {
	s.err = err
	return s
}

// Fetch returns copies of the events released within [from, to].
func (s *StubEventSource) Fetch(_ context.Context, from, to int64) ([]*domain.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []*domain.Event
	for _, e := range s.events {
		if e.TimestampMs >= from && e.TimestampMs <= to {
			c := *e
			result = append(result, &c)
		}
	}
	return result, nil
}

// StubPriceSource returns fixed in-memory price samples, duplicates included.
// Implements ingestion.PriceSource.
type StubPriceSource struct {
	samples []*domain.PriceSample
	err     error
}

// NewStubPriceSource creates a source serving samples.
func NewStubPriceSource(samples []*domain.PriceSample) *StubPriceSource {
	return &StubPriceSource{samples: samples}
}

// WithError makes every Fetch fail with err.
func (s *StubPriceSource) WithError(err error) *StubPriceSource {
	s.err = err
	return s
}

// Fetch returns copies of the samples within [from, to].
func (s *StubPriceSource) Fetch(_ context.Context, from, to int64) ([]*domain.PriceSample, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []*domain.PriceSample
	for _, p := range s.samples {
		if p.TimestampMs >= from && p.TimestampMs <= to {
			c := *p
			result = append(result, &c)
		}
	}
	return result, nil
}
