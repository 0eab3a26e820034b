package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/classifier"
	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/ingestion"
	"fx-impact-lab/internal/storage/memory"
)

func TestGenerateFixtures_Deterministic(t *testing.T) {
	cfg := DefaultFixtureConfig()
	events1, samples1 := GenerateFixtures(cfg)
	events2, samples2 := GenerateFixtures(cfg)

	require.Equal(t, len(events1), len(events2))
	require.Equal(t, len(samples1), len(samples2))
	for i := range events1 {
		assert.Equal(t, *events1[i], *events2[i])
	}
	for i := range samples1 {
		if *samples1[i] != *samples2[i] {
			t.Fatalf("sample %d differs: %+v vs %+v", i, samples1[i], samples2[i])
		}
	}

	cfg.Seed = 7
	events3, _ := GenerateFixtures(cfg)
	assert.NotEqual(t, *events1[0].Actual, *events3[0].Actual, "seed changes surprises")
}

func TestGenerateFixtures_Shape(t *testing.T) {
	cfg := DefaultFixtureConfig()
	events, samples := GenerateFixtures(cfg)

	assert.Len(t, events, cfg.Months*len(fixtureTemplates))

	sorted := append([]*domain.PriceSample(nil), samples...)
	ingestion.SortPriceSamples(sorted)
	assert.NoError(t, ingestion.ValidatePriceOrdering(sorted), "timestamps must be unique")

	c := classifier.MustDefault()
	classified := 0
	for _, e := range events {
		if _, ok := c.ClassifyEvent(e); ok {
			classified++
		}
	}
	assert.Equal(t, cfg.Months*(len(fixtureTemplates)-1), classified, "only the holiday is unclassified")

	for _, s := range samples {
		if s.Close <= 0 {
			t.Fatalf("non-positive close %v at %d", s.Close, s.TimestampMs)
		}
	}
}

func TestGenerateFixtures_DirectionFollowsSurprise(t *testing.T) {
	cfg := DefaultFixtureConfig()
	cfg.Months = 3
	events, samples := GenerateFixtures(cfg)

	byTs := make(map[int64]float64, len(samples))
	for _, s := range samples {
		byTs[s.TimestampMs] = s.Close
	}

	for _, e := range events {
		if e.EventKey != "nfp" {
			continue
		}
		surprise, ok := e.Surprise()
		require.True(t, ok)
		entry := byTs[e.TimestampMs]
		peak := byTs[e.TimestampMs+6*domain.MillisPerMinute]
		if surprise > 0 {
			assert.Less(t, peak, entry, "strong USD data pushes EURUSD down")
		} else {
			assert.Greater(t, peak, entry)
		}
	}
}

func TestLoadFixtures(t *testing.T) {
	ctx := context.Background()
	events := memory.NewEventStore()
	prices := memory.NewPriceSampleStore()

	nEvents, nSamples, err := LoadFixtures(ctx, events, prices, DefaultFixtureConfig())
	require.NoError(t, err)
	assert.Positive(t, nEvents)
	assert.Positive(t, nSamples)

	minTs, maxTs, err := prices.GetTimeRange(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Less(t, minTs, maxTs)

	// Raw stores are append-only
	_, _, err = LoadFixtures(ctx, events, prices, DefaultFixtureConfig())
	assert.Error(t, err)
}
