package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

type storedReaction struct {
	paramsHash string
	reaction   domain.ReactionMetrics
}

// ReactionStore is an in-memory implementation of storage.ReactionStore.
type ReactionStore struct {
	mu   sync.RWMutex
	data map[string]*storedReaction // keyed by (event_id, horizon, params_hash)
}

// NewReactionStore creates a new in-memory reaction store.
func NewReactionStore() *ReactionStore {
	return &ReactionStore{
		data: make(map[string]*storedReaction),
	}
}

func reactionKey(eventID string, horizon int, paramsHash string) string {
	return fmt.Sprintf("%s|%d|%s", eventID, horizon, paramsHash)
}

// Upsert writes reactions computed with paramsHash, replacing existing keys.
func (s *ReactionStore) Upsert(_ context.Context, paramsHash string, reactions []*domain.ReactionMetrics) error {
	for _, r := range reactions {
		if r == nil || r.EventID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reactions {
		s.data[reactionKey(r.EventID, r.HorizonMinutes, paramsHash)] = &storedReaction{
			paramsHash: paramsHash,
			reaction:   *r,
		}
	}
	return nil
}

// GetByFamily retrieves reactions of a family and horizon, ordered by event time, event_id.
func (s *ReactionStore) GetByFamily(_ context.Context, paramsHash string, family domain.Family, horizonMinutes int) ([]*domain.ReactionMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReactionMetrics
	for _, sr := range s.data {
		r := sr.reaction
		if sr.paramsHash == paramsHash && r.Family == family && r.HorizonMinutes == horizonMinutes {
			result = append(result, &r)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EventTimeMs != result[j].EventTimeMs {
			return result[i].EventTimeMs < result[j].EventTimeMs
		}
		return result[i].EventID < result[j].EventID
	})

	return result, nil
}

var _ storage.ReactionStore = (*ReactionStore)(nil)
