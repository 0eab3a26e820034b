package combiner

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/domain"
)

const (
	tolerance = 1e-9
	minute    = domain.MillisPerMinute
	sessionTs = int64(1_717_763_400_000) // 2024-06-07 12:30 UTC
)

func newCombiner(t *testing.T) *Combiner {
	t.Helper()
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	return c
}

func pred(id string, offsetMin int64, pips float64, dir domain.Direction, latency, ttr float64) domain.EventPrediction {
	return domain.EventPrediction{
		EventID:        id,
		TimestampMs:    sessionTs + offsetMin*minute,
		Surprise:       float64(dir) * 10,
		BaseImpactPips: pips,
		PredictedPips:  pips,
		Direction:      dir,
		LatencyMinutes: latency,
		TTRMinutes:     ttr,
	}
}

func TestCombine_SameDirection(t *testing.T) {
	c := newCombiner(t)

	result, err := c.Combine([]domain.EventPrediction{
		pred("cpi", 0, 10, domain.DirectionUp, 5, 20),
		pred("claims", 30, 15, domain.DirectionUp, 8, 40),
	})
	require.NoError(t, err)

	assert.InDelta(t, 25, result.CombinedImpactPips, tolerance)
	assert.Equal(t, domain.DirectionUp, result.Direction)
	// (5*10 + 8*15) / 25
	assert.InDelta(t, 6.8, result.WeightedLatencyMinutes, tolerance)
	assert.InDelta(t, 20, result.CombinedTTRMinutes, tolerance)
	assert.Equal(t, domain.CoherenceAmplification, result.Coherence)
	assert.InDelta(t, 30, result.TimeSpanMinutes, tolerance)
	assert.True(t, result.StrongInteraction)
	assert.Empty(t, result.Overlaps)
	assert.Empty(t, result.Warnings)

	// 50 base + 5 count + 20 coherence + 8 magnitude + 10 compact span
	assert.InDelta(t, 93, result.Session.Score, tolerance)
	assert.Equal(t, SessionExcellent, result.Session.Label)
}

func TestCombine_Antagonism(t *testing.T) {
	c := newCombiner(t)

	result, err := c.Combine([]domain.EventPrediction{
		pred("a", 0, 10, domain.DirectionUp, 5, 10),
		pred("b", 0, 15, domain.DirectionDown, 8, 30),
	})
	require.NoError(t, err)

	assert.InDelta(t, -5, result.CombinedImpactPips, tolerance)
	assert.Equal(t, domain.DirectionDown, result.Direction)
	assert.Equal(t, domain.CoherenceAntagonism, result.Coherence)
	assert.NotEmpty(t, result.Warnings)
	assert.Negative(t, result.Session.CoherenceBonus)
}

func TestCombine_ZeroImpactFallsBackToMean(t *testing.T) {
	c := newCombiner(t)

	result, err := c.Combine([]domain.EventPrediction{
		pred("a", 0, 0, domain.DirectionUp, 4, 10),
		pred("b", 60, 0, domain.DirectionUp, 10, 30),
	})
	require.NoError(t, err)

	assert.InDelta(t, 7, result.WeightedLatencyMinutes, tolerance)
}

func TestCombine_SingleEvent(t *testing.T) {
	c := newCombiner(t)

	result, err := c.Combine([]domain.EventPrediction{pred("nfp", 0, 40, domain.DirectionDown, 2, 25)})
	require.NoError(t, err)

	assert.Equal(t, domain.CoherenceSingle, result.Coherence)
	assert.False(t, result.StrongInteraction)
	assert.InDelta(t, -40, result.CombinedImpactPips, tolerance)
	assert.InDelta(t, 25, result.CombinedTTRMinutes, tolerance)

	s := result.Suggested
	assert.InDelta(t, -2, s.EntryOffsetMinutes, tolerance)
	assert.Equal(t, sessionTs-2*minute, s.EntryTimeMs)
	assert.Equal(t, sessionTs+2*minute, s.ReactionTimeMs)
	assert.Equal(t, sessionTs+25*minute, s.ExitTimeMs)
}

func TestCombine_NoPredictions(t *testing.T) {
	c := newCombiner(t)

	_, err := c.Combine(nil)
	assert.True(t, errors.Is(err, ErrNoPredictions))
}

func TestCombine_TTRIsMinimum(t *testing.T) {
	c := newCombiner(t)
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 100; i++ {
		n := 1 + rng.Intn(6)
		events := make([]domain.EventPrediction, n)
		want := 0.0
		for k := range events {
			ttr := rng.Float64() * 60
			events[k] = pred(string(rune('a'+k)), int64(rng.Intn(240)), rng.Float64()*30, domain.DirectionUp, rng.Float64()*20, ttr)
			if k == 0 || ttr < want {
				want = ttr
			}
		}

		result, err := c.Combine(events)
		require.NoError(t, err)
		require.Equal(t, want, result.CombinedTTRMinutes)
	}
}

func TestDetectOverlaps_Severity(t *testing.T) {
	c := newCombiner(t)

	overlaps := c.DetectOverlaps([]domain.EventPrediction{
		pred("first", 0, 10, domain.DirectionUp, 2, 45),
		pred("second", 10, 10, domain.DirectionUp, 2, 12),
		pred("third", 17, 10, domain.DirectionUp, 2, 5),
		pred("late", 60, 10, domain.DirectionUp, 2, 5),
	})

	require.Len(t, overlaps, 3)

	assert.Equal(t, "first", overlaps[0].FirstEventID)
	assert.Equal(t, "second", overlaps[0].SecondEventID)
	assert.InDelta(t, 35, overlaps[0].OverlapMinutes, tolerance)
	assert.Equal(t, domain.SeverityHigh, overlaps[0].Severity)

	assert.Equal(t, "third", overlaps[1].SecondEventID)
	assert.InDelta(t, 28, overlaps[1].OverlapMinutes, tolerance)

	// second reverses at 22, third released at 17
	assert.Equal(t, "second", overlaps[2].FirstEventID)
	assert.InDelta(t, 5, overlaps[2].OverlapMinutes, tolerance)
	assert.Equal(t, domain.SeverityMedium, overlaps[2].Severity)
}

func TestDetectOverlaps_SymmetricUnderReordering(t *testing.T) {
	c := newCombiner(t)
	rng := rand.New(rand.NewSource(3))

	events := make([]domain.EventPrediction, 8)
	for k := range events {
		events[k] = pred(string(rune('a'+k)), int64(rng.Intn(90)), 10, domain.DirectionUp, 3, rng.Float64()*40)
	}
	base := c.DetectOverlaps(events)

	for i := 0; i < 20; i++ {
		shuffled := make([]domain.EventPrediction, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assert.Equal(t, base, c.DetectOverlaps(shuffled))

		r1, err := c.Combine(events)
		require.NoError(t, err)
		r2, err := c.Combine(shuffled)
		require.NoError(t, err)
		assert.Equal(t, r1, r2)
	}
}

func TestSessionScore_Penalties(t *testing.T) {
	c := newCombiner(t)

	result, err := c.Combine([]domain.EventPrediction{
		pred("a", 0, 3, domain.DirectionUp, 2, 400),
		pred("b", 200, 2, domain.DirectionDown, 2, 300),
		pred("c", 400, 2, domain.DirectionUp, 2, 10),
	})
	require.NoError(t, err)

	s := result.Session
	assert.InDelta(t, 10, s.CountBonus, tolerance)
	assert.InDelta(t, -20, s.CoherenceBonus, tolerance)
	assert.Zero(t, s.MagnitudeBonus)
	// a overlaps b (200 min) and c (0 min is no overlap since c is released at reversal),
	// b overlaps c (100 min)
	assert.InDelta(t, -20, s.OverlapPenalty, tolerance)
	assert.InDelta(t, -10, s.TimeSpanBonus, tolerance)
	assert.InDelta(t, 10, s.Score, tolerance)
	assert.Equal(t, SessionDifficult, s.Label)
}

func TestScenarios(t *testing.T) {
	c := newCombiner(t)

	p := pred("cpi", 0, 20, domain.DirectionUp, 4, 30)
	p.Surprise = 1

	result, err := c.Combine([]domain.EventPrediction{p})
	require.NoError(t, err)
	require.Len(t, result.Scenarios, 5)

	byDelta := make(map[float64]domain.Scenario)
	for _, sc := range result.Scenarios {
		byDelta[sc.SurpriseDelta] = sc
	}

	// delta -1 shifts the surprise to zero: no direction, event left out
	assert.Equal(t, 0, byDelta[-1].EventCount)
	// delta 0: 20 * (0.5 + 0.5 * 1/50)
	assert.InDelta(t, 10.2, byDelta[0].CombinedImpactPips, tolerance)
	assert.Equal(t, 1, byDelta[0].EventCount)
	// delta -2: surprise -1 flips direction
	assert.InDelta(t, -10.2, byDelta[-2].CombinedImpactPips, tolerance)
	assert.Equal(t, domain.DirectionDown, byDelta[-2].Direction)
	assert.InDelta(t, 4, byDelta[2].LatencyMinutes, tolerance)
	assert.InDelta(t, 30, byDelta[2].TTRMinutes, tolerance)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative entry lead", func(c *Config) { c.EntryLeadMinutes = -1 }},
		{"overlap thresholds inverted", func(c *Config) { c.HighOverlapMinutes = 2 }},
		{"zero surprise scale", func(c *Config) { c.SurpriseScale = 0 }},
		{"span bounds inverted", func(c *Config) { c.Session.CompactSpanMinutes = 500 }},
		{"labels inverted", func(c *Config) { c.Session.FairMinScore = 90 }},
	}

	require.NoError(t, DefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}
