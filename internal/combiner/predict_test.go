package combiner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func cpiStats() *domain.FamilyStats {
	return &domain.FamilyStats{
		StatsKey:      domain.StatsKey{Family: "CPI", HorizonMinutes: 30},
		N:             12,
		Sufficient:    true,
		MFEP80:        20,
		LatencyMedian: 3,
		LatencyP20:    1,
		LatencyP80:    6,
		TTRMedian:     18,
	}
}

func TestPredict(t *testing.T) {
	c := newCombiner(t)

	tests := []struct {
		name     string
		actual   float64
		forecast float64
		wantPips float64
		wantDir  domain.Direction
	}{
		{"half scale surprise", 125, 100, 15, domain.DirectionUp},
		{"capped surprise", 0, 150, 30, domain.DirectionDown},
		{"tiny surprise", 3.2, 3.1, 20 * (0.5 + 0.5*0.1/50), domain.DirectionUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &domain.Event{EventID: "e1", Title: "CPI m/m", TimestampMs: sessionTs, Actual: ptr(tt.actual), Forecast: ptr(tt.forecast)}

			p, err := c.Predict(e, cpiStats())
			require.NoError(t, err)
			assert.InDelta(t, tt.wantPips, p.PredictedPips, 1e-6)
			assert.Equal(t, tt.wantDir, p.Direction)
			assert.Equal(t, domain.Family("CPI"), p.Family)
			assert.InDelta(t, 20, p.BaseImpactPips, tolerance)
			assert.InDelta(t, 3, p.LatencyMinutes, tolerance)
			assert.InDelta(t, 18, p.TTRMinutes, tolerance)
		})
	}
}

func TestPredict_FallsBackToPrevious(t *testing.T) {
	c := newCombiner(t)
	e := &domain.Event{EventID: "e1", Actual: ptr(200), Previous: ptr(150)}

	p, err := c.Predict(e, cpiStats())
	require.NoError(t, err)
	assert.InDelta(t, 50, p.Surprise, tolerance)
	assert.InDelta(t, 20, p.PredictedPips, tolerance)
}

func TestPredict_Errors(t *testing.T) {
	c := newCombiner(t)

	zero := &domain.Event{EventID: "z", Actual: ptr(1.5), Forecast: ptr(1.5)}
	_, err := c.Predict(zero, cpiStats())
	assert.True(t, errors.Is(err, ErrZeroSurprise), "got %v", err)

	missing := &domain.Event{EventID: "m", Forecast: ptr(1.5)}
	_, err = c.Predict(missing, cpiStats())
	assert.True(t, errors.Is(err, ErrMissingSurprise), "got %v", err)

	ok := &domain.Event{EventID: "o", Actual: ptr(2), Forecast: ptr(1)}
	_, err = c.Predict(ok, nil)
	assert.True(t, errors.Is(err, ErrNoStats), "got %v", err)

	_, err = c.Predict(ok, &domain.FamilyStats{N: 3})
	assert.True(t, errors.Is(err, ErrNoStats), "got %v", err)
}
