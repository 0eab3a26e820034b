package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/cache"
	"fx-impact-lab/internal/config"
	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/pipeline"
	"fx-impact-lab/internal/publish"
)

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Cache.Backend = "none"

	stores := NewMemoryStores()
	fc := pipeline.DefaultFixtureConfig()
	fc.Months = 12
	_, _, err := pipeline.LoadFixtures(ctx, stores.Events, stores.Prices, fc)
	require.NoError(t, err)

	fixed := time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
	a, err := New(ctx, cfg, Options{
		Stores: stores,
		Now:    func() time.Time { return fixed },
		RunID:  func() string { return "run-app" },
	})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, publish.Nop{}, a.Publisher)
	assert.IsType(t, cache.Nop{}, a.Cache)
	require.NotNil(t, a.Planner)

	result, err := a.Orchestrator.Run(ctx, orchestrator.RunRequest{
		Start: fc.Start,
		End:   fc.Start.AddDate(0, fc.Months, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "run-app", result.RunID)
	assert.NotEmpty(t, result.Stats)
	assert.Greater(t, result.SufficientGroups(), 0)

	scores, err := stores.Scores.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, scores, len(result.Scores))
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		backend string
		want    cache.Service
	}{
		{"none", cache.Nop{}},
		{"memory", &cache.MemoryCache{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default().Cache
			cfg.Backend = tt.backend
			svc, err := OpenCache(ctx, cfg)
			require.NoError(t, err)
			defer svc.Close()
			assert.IsType(t, tt.want, svc)
		})
	}
}

func TestOpenPublisher_Disabled(t *testing.T) {
	p, err := OpenPublisher(config.Default().Kafka, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, publish.Nop{}, p)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default().Log
	log, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, log)

	cfg.Level = "loud"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}
