package ingestion

import (
	"context"
	"errors"
	"fmt"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/storage"
)

// Manager orchestrates ingestion from sources to storage.
// It enforces deterministic ordering and uses storage layer for duplicate rejection.
type Manager struct {
	eventSource EventSource
	priceSource PriceSource

	eventStore storage.EventStore
	priceStore storage.PriceSampleStore

	skipExisting bool
	log          *logger.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	EventSource EventSource
	PriceSource PriceSource

	EventStore storage.EventStore
	PriceStore storage.PriceSampleStore

	// SkipExisting filters out records already stored instead of failing
	// the batch with ErrDuplicateKey. Re-ingesting an overlapping file is then a no-op.
	SkipExisting bool

	Logger *logger.Logger
}

// Result counts what happened to the fetched records.
type Result struct {
	Fetched    int
	Duplicates int // repeated inside the fetched batch, last occurrence kept
	Existing   int // already stored, only with SkipExisting
	Inserted   int
}

// NewManager creates a new ingestion manager with the provided sources and stores.
func NewManager(opts ManagerOptions) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		eventSource:  opts.EventSource,
		priceSource:  opts.PriceSource,
		eventStore:   opts.EventStore,
		priceStore:   opts.PriceStore,
		skipExisting: opts.SkipExisting,
		log:          log.With(logger.String("component", "ingestion")),
	}
}

// IngestEvents fetches events from source and stores them.
// Enforces deterministic ordering by (timestamp, event_id).
// Duplicates are rejected by the storage layer (ErrDuplicateKey) unless SkipExisting is set.
func (m *Manager) IngestEvents(ctx context.Context, from, to int64) (Result, error) {
	var res Result
	if m.eventSource == nil || m.eventStore == nil {
		return res, nil
	}

	events, err := m.eventSource.Fetch(ctx, from, to)
	if err != nil {
		return res, fmt.Errorf("fetch events: %w", err)
	}
	res.Fetched = len(events)
	if len(events) == 0 {
		return res, nil
	}

	// Enforce deterministic ordering
	SortEvents(events)
	events, res.Duplicates = DedupeEvents(events)
	if err := ValidateEventOrdering(events); err != nil {
		return res, err
	}

	if m.skipExisting {
		fresh := events[:0]
		for _, e := range events {
			_, err := m.eventStore.GetByID(ctx, e.EventID)
			switch {
			case err == nil:
				res.Existing++
			case errors.Is(err, storage.ErrNotFound):
				fresh = append(fresh, e)
			default:
				return res, fmt.Errorf("check event %s: %w", e.EventID, err)
			}
		}
		events = fresh
	}

	if len(events) > 0 {
		if err := m.eventStore.InsertBulk(ctx, events); err != nil {
			return res, err
		}
	}
	res.Inserted = len(events)

	m.log.Info("events ingested",
		logger.Int("fetched", res.Fetched),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("existing", res.Existing),
		logger.Int("inserted", res.Inserted),
	)
	return res, nil
}

// IngestPrices fetches price samples from source and stores them.
// Enforces deterministic ordering by (symbol, timestamp) with unique timestamps.
func (m *Manager) IngestPrices(ctx context.Context, from, to int64) (Result, error) {
	var res Result
	if m.priceSource == nil || m.priceStore == nil {
		return res, nil
	}

	samples, err := m.priceSource.Fetch(ctx, from, to)
	if err != nil {
		return res, fmt.Errorf("fetch prices: %w", err)
	}
	res.Fetched = len(samples)
	if len(samples) == 0 {
		return res, nil
	}

	SortPriceSamples(samples)
	samples, res.Duplicates = DedupePriceSamples(samples)
	if err := ValidatePriceOrdering(samples); err != nil {
		return res, err
	}

	if m.skipExisting {
		samples, res.Existing, err = m.dropStoredSamples(ctx, samples)
		if err != nil {
			return res, err
		}
	}

	if len(samples) > 0 {
		if err := m.priceStore.InsertBulk(ctx, samples); err != nil {
			return res, err
		}
	}
	res.Inserted = len(samples)

	m.log.Info("prices ingested",
		logger.Int("fetched", res.Fetched),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("existing", res.Existing),
		logger.Int("inserted", res.Inserted),
	)
	return res, nil
}

// dropStoredSamples removes samples whose (symbol, timestamp) is already stored.
// Samples must be sorted by symbol then timestamp.
func (m *Manager) dropStoredSamples(ctx context.Context, samples []*domain.PriceSample) ([]*domain.PriceSample, int, error) {
	fresh := make([]*domain.PriceSample, 0, len(samples))
	existing := 0

	start := 0
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && samples[i].Symbol == samples[start].Symbol {
			continue
		}
		group := samples[start:i]
		symbol := group[0].Symbol

		stored, err := m.priceStore.GetByTimeRange(ctx, symbol, group[0].TimestampMs, group[len(group)-1].TimestampMs)
		if err != nil {
			return nil, 0, fmt.Errorf("check stored prices for %s: %w", symbol, err)
		}
		have := make(map[int64]struct{}, len(stored))
		for _, p := range stored {
			have[p.TimestampMs] = struct{}{}
		}
		for _, p := range group {
			if _, ok := have[p.TimestampMs]; ok {
				existing++
				continue
			}
			fresh = append(fresh, p)
		}
		start = i
	}
	return fresh, existing, nil
}
