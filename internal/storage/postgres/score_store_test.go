package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

func sampleScore(family domain.Family, composite float64) *domain.Score {
	return &domain.Score{
		Family:         family,
		Country:        "US",
		HorizonMinutes: 30,
		Composite:      composite,
		Components: domain.ScoreComponents{
			Impact: 40, Persistence: 70, Reliability: 100, Importance: 100,
		},
		LatencyScore:  0.8,
		TTRScore:      0.6,
		Grade:         "A",
		Tradability:   domain.TradabilityExcellent,
		N:             20,
		MFEP80:        30,
		LatencyMedian: 6,
		TTRMedian:     40,
		PUp:           0.7,
	}
}

func TestScoreStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreStore(pool)
	ctx := context.Background()

	nfp := sampleScore("NFP", 80)
	require.NoError(t, store.Upsert(ctx, []*domain.Score{nfp, sampleScore("CPI", 60)}))

	got, err := store.GetByFamily(ctx, "NFP", "US", 30)
	require.NoError(t, err)
	assert.Equal(t, nfp, got)

	// Recomputed run replaces the row
	updated := sampleScore("NFP", 72)
	updated.ConvictionPenalty = true
	updated.Tradability = domain.TradabilityGood
	require.NoError(t, store.Upsert(ctx, []*domain.Score{updated}))

	got, err = store.GetByFamily(ctx, "NFP", "US", 30)
	require.NoError(t, err)
	assert.Equal(t, 72.0, got.Composite)
	assert.True(t, got.ConvictionPenalty)
	assert.Equal(t, domain.TradabilityGood, got.Tradability)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.Family("CPI"), all[0].Family)
}

func TestScoreStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScoreStore(pool)
	_, err := store.GetByFamily(context.Background(), "NFP", "US", 30)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
