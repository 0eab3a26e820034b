package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

// FamilyStatsStore is an in-memory implementation of storage.FamilyStatsStore.
type FamilyStatsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FamilyStats // keyed by stats key + params_hash
}

// NewFamilyStatsStore creates a new in-memory family stats store.
func NewFamilyStatsStore() *FamilyStatsStore {
	return &FamilyStatsStore{
		data: make(map[string]*domain.FamilyStats),
	}
}

func statsKey(key domain.StatsKey, paramsHash string) string {
	return fmt.Sprintf("%s|%s", key.String(), paramsHash)
}

// Upsert writes a batch of stats, replacing existing keys.
func (s *FamilyStatsStore) Upsert(_ context.Context, stats []*domain.FamilyStats) error {
	for _, st := range stats {
		if st == nil || !st.Family.IsKnown() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range stats {
		statsCopy := *st
		s.data[statsKey(st.StatsKey, st.ParamsHash)] = &statsCopy
	}
	return nil
}

// GetByKey retrieves stats for one group. Returns ErrNotFound if not exists.
func (s *FamilyStatsStore) GetByKey(_ context.Context, key domain.StatsKey, paramsHash string) (*domain.FamilyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[statsKey(key, paramsHash)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	statsCopy := *st
	return &statsCopy, nil
}

// GetAll retrieves all stats ordered by family, country, horizon, lookback.
func (s *FamilyStatsStore) GetAll(_ context.Context) ([]*domain.FamilyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FamilyStats, 0, len(s.data))
	for _, st := range s.data {
		statsCopy := *st
		result = append(result, &statsCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.StatsKey != b.StatsKey {
			return statsKeyLess(a.StatsKey, b.StatsKey)
		}
		return a.ParamsHash < b.ParamsHash
	})

	return result, nil
}

func statsKeyLess(a, b domain.StatsKey) bool {
	if a.Family != b.Family {
		return a.Family < b.Family
	}
	if a.Country != b.Country {
		return a.Country < b.Country
	}
	if a.HorizonMinutes != b.HorizonMinutes {
		return a.HorizonMinutes < b.HorizonMinutes
	}
	return a.LookbackDays < b.LookbackDays
}

var _ storage.FamilyStatsStore = (*FamilyStatsStore)(nil)
