package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

// PriceSampleStore is an in-memory implementation of storage.PriceSampleStore.
type PriceSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceSample // keyed by (symbol, timestamp_ms)
}

// NewPriceSampleStore creates a new in-memory price sample store.
func NewPriceSampleStore() *PriceSampleStore {
	return &PriceSampleStore{
		data: make(map[string]*domain.PriceSample),
	}
}

func priceKey(symbol string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", symbol, timestampMs)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate.
func (s *PriceSampleStore) InsertBulk(_ context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(samples))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range samples {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := priceKey(p.Symbol, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range samples {
		sampleCopy := *p
		s.data[priceKey(p.Symbol, p.TimestampMs)] = &sampleCopy
	}

	return nil
}

// GetLatestAtOrBefore returns the most recent sample with timestamp <= ts.
func (s *PriceSampleStore) GetLatestAtOrBefore(_ context.Context, symbol string, ts int64) (*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.PriceSample
	for _, p := range s.data {
		if p.Symbol != symbol || p.TimestampMs > ts {
			continue
		}
		if best == nil || p.TimestampMs > best.TimestampMs {
			best = p
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}

	sampleCopy := *best
	return &sampleCopy, nil
}

// GetByTimeRange retrieves samples within [start, end] (inclusive), ordered by timestamp ASC.
func (s *PriceSampleStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, p := range s.data {
		if p.Symbol == symbol && p.TimestampMs >= start && p.TimestampMs <= end {
			sampleCopy := *p
			result = append(result, &sampleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetTimeRange returns min and max timestamps of the symbol's feed.
func (s *PriceSampleStore) GetTimeRange(_ context.Context, symbol string) (minTs, maxTs int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	first := true
	for _, p := range s.data {
		if p.Symbol != symbol {
			continue
		}
		if first {
			minTs, maxTs = p.TimestampMs, p.TimestampMs
			first = false
			continue
		}
		if p.TimestampMs < minTs {
			minTs = p.TimestampMs
		}
		if p.TimestampMs > maxTs {
			maxTs = p.TimestampMs
		}
	}

	return minTs, maxTs, nil
}

var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)
