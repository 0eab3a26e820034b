package ingestion

import (
	"context"
	"fmt"
	"os"
	"sync"

	"fx-impact-lab/internal/domain"
)

// EventSource provides economic calendar events from external sources.
type EventSource interface {
	// Fetch returns events released within [from, to] (inclusive, Unix ms).
	// Events may be unordered; Manager enforces deterministic ordering.
	Fetch(ctx context.Context, from, to int64) ([]*domain.Event, error)
}

// PriceSource provides close prices from external sources.
type PriceSource interface {
	// Fetch returns samples within [from, to] (inclusive, Unix ms).
	// Samples may be unordered or duplicated; Manager enforces ordering.
	Fetch(ctx context.Context, from, to int64) ([]*domain.PriceSample, error)
}

// CSVEventSource reads events from a calendar CSV file.
// Implements EventSource interface.
type CSVEventSource struct {
	path string

	mu    sync.Mutex
	stats ParseStats
}

// NewCSVEventSource creates a source backed by the file at path.
func NewCSVEventSource(path string) *CSVEventSource {
	return &CSVEventSource{path: path}
}

// Fetch parses the file and returns events inside the range.
func (s *CSVEventSource) Fetch(ctx context.Context, from, to int64) ([]*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	events, stats, err := ParseEventsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.setStats(stats)

	var result []*domain.Event
	for _, e := range events {
		if e.TimestampMs >= from && e.TimestampMs <= to {
			result = append(result, e)
		}
	}
	return result, nil
}

// Stats returns the row counts of the last Fetch.
func (s *CSVEventSource) Stats() ParseStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *CSVEventSource) setStats(stats ParseStats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

// CSVPriceSource reads one symbol's close prices from a CSV file.
// Implements PriceSource interface.
type CSVPriceSource struct {
	path   string
	symbol string

	mu    sync.Mutex
	stats ParseStats
}

// NewCSVPriceSource creates a source backed by the file at path.
func NewCSVPriceSource(path, symbol string) *CSVPriceSource {
	return &CSVPriceSource{path: path, symbol: symbol}
}

// Fetch parses the file and returns samples inside the range.
func (s *CSVPriceSource) Fetch(ctx context.Context, from, to int64) ([]*domain.PriceSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open prices file: %w", err)
	}
	defer f.Close()

	samples, stats, err := ParsePricesCSV(f, s.symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()

	var result []*domain.PriceSample
	for _, p := range samples {
		if p.TimestampMs >= from && p.TimestampMs <= to {
			result = append(result, p)
		}
	}
	return result, nil
}

// Stats returns the row counts of the last Fetch.
func (s *CSVPriceSource) Stats() ParseStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
