package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

// ScoreStore is an in-memory implementation of storage.ScoreStore.
type ScoreStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Score // keyed by (family, country, horizon)
}

// NewScoreStore creates a new in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		data: make(map[string]*domain.Score),
	}
}

func scoreKey(family domain.Family, country string, horizon int) string {
	return fmt.Sprintf("%s|%s|%d", family, country, horizon)
}

// Upsert writes a batch of scores, replacing existing keys.
func (s *ScoreStore) Upsert(_ context.Context, scores []*domain.Score) error {
	for _, sc := range scores {
		if sc == nil || !sc.Family.IsKnown() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range scores {
		scoreCopy := *sc
		s.data[scoreKey(sc.Family, sc.Country, sc.HorizonMinutes)] = &scoreCopy
	}
	return nil
}

// GetByFamily retrieves the score of a family. Returns ErrNotFound if not exists.
func (s *ScoreStore) GetByFamily(_ context.Context, family domain.Family, country string, horizonMinutes int) (*domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.data[scoreKey(family, country, horizonMinutes)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	scoreCopy := *sc
	return &scoreCopy, nil
}

// GetAll retrieves all scores ordered by family, country, horizon.
func (s *ScoreStore) GetAll(_ context.Context) ([]*domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Score, 0, len(s.data))
	for _, sc := range s.data {
		scoreCopy := *sc
		result = append(result, &scoreCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		return a.HorizonMinutes < b.HorizonMinutes
	})

	return result, nil
}

var _ storage.ScoreStore = (*ScoreStore)(nil)
