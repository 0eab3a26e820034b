package metrics

import (
	"errors"
	"fmt"
	"testing"

	"fx-impact-lab/internal/domain"
)

func makeGroup(family domain.Family, country string, horizon, n int) []*domain.ReactionMetrics {
	out := make([]*domain.ReactionMetrics, n)
	for i := 0; i < n; i++ {
		out[i] = &domain.ReactionMetrics{
			EventID:        fmt.Sprintf("%s-%s-%d", family, country, i),
			Family:         family,
			Country:        country,
			EventTimeMs:    int64(i) * 60_000,
			HorizonMinutes: horizon,
			MFEPips:        float64(4 + 2*i),
			LatencyMinutes: 2,
			TTRMinutes:     10,
			Direction:      domain.DirectionUp,
			Reacted:        true,
		}
	}
	return out
}

func TestGroupReactions_AddsAllCountriesGroup(t *testing.T) {
	agg := NewAggregator(DefaultMinEvents, 365, "hash")

	reactions := append(makeGroup("CPI", "US", 30, 3), makeGroup("CPI", "EU", 30, 2)...)
	reactions = append(reactions, makeGroup("CPI", "US", 60, 1)...)
	reactions = append(reactions, &domain.ReactionMetrics{EventID: "x", HorizonMinutes: 30}) // unclassified

	groups := agg.GroupReactions(reactions)

	tests := []struct {
		key  domain.StatsKey
		want int
	}{
		{domain.StatsKey{Family: "CPI", Country: "US", HorizonMinutes: 30, LookbackDays: 365}, 3},
		{domain.StatsKey{Family: "CPI", Country: "EU", HorizonMinutes: 30, LookbackDays: 365}, 2},
		{domain.StatsKey{Family: "CPI", Country: "", HorizonMinutes: 30, LookbackDays: 365}, 5},
		{domain.StatsKey{Family: "CPI", Country: "US", HorizonMinutes: 60, LookbackDays: 365}, 1},
		{domain.StatsKey{Family: "CPI", Country: "", HorizonMinutes: 60, LookbackDays: 365}, 1},
	}

	if len(groups) != len(tests) {
		t.Errorf("expected %d groups, got %d", len(tests), len(groups))
	}
	for _, tt := range tests {
		if got := len(groups[tt.key]); got != tt.want {
			t.Errorf("group %s: expected %d reactions, got %d", tt.key, tt.want, got)
		}
	}
}

func TestCompute_InsufficientSentinel(t *testing.T) {
	agg := NewAggregator(5, 365, "hash")
	key := domain.StatsKey{Family: "NFP", Country: "US", HorizonMinutes: 30, LookbackDays: 365}

	stats := agg.Compute(key, makeGroup("NFP", "US", 30, 4))

	if stats.Sufficient {
		t.Error("expected insufficient sentinel for 4 events")
	}
	if stats.N != 4 {
		t.Errorf("expected N 4, got %d", stats.N)
	}
	if stats.MFEP80 != 0 || stats.PUp != 0 || stats.LatencyMedian != 0 || stats.TTRMedian != 0 {
		t.Errorf("expected zeroed statistics, got %+v", stats)
	}
	if stats.ParamsHash != "hash" {
		t.Errorf("expected params hash stamped, got %q", stats.ParamsHash)
	}
	if stats.StatsKey != key {
		t.Errorf("expected key %s, got %s", key, stats.StatsKey)
	}
}

func TestCompute_EmptyGroup(t *testing.T) {
	agg := NewAggregator(0, 30, "")
	stats := agg.Compute(domain.StatsKey{Family: "PMI"}, nil)

	if stats.Sufficient || stats.N != 0 {
		t.Errorf("expected empty sentinel, got n=%d sufficient=%v", stats.N, stats.Sufficient)
	}
	if agg.MinEvents() != 1 {
		t.Errorf("expected min events raised to 1, got %d", agg.MinEvents())
	}
}

// An event without an anchor never produces a reaction, so it is simply
// absent from the group and n reflects the exclusion.
func TestCompute_ExcludedEventReducesN(t *testing.T) {
	agg := NewAggregator(5, 365, "")
	reactions := makeGroup("GDP", "US", 30, 6)
	withoutFirst := reactions[1:]

	stats := agg.Compute(domain.StatsKey{Family: "GDP", Country: "US", HorizonMinutes: 30}, withoutFirst)

	if stats.N != 5 || !stats.Sufficient {
		t.Errorf("expected sufficient group of 5, got n=%d sufficient=%v", stats.N, stats.Sufficient)
	}
}

func TestComputeAll_SortedAndDeterministic(t *testing.T) {
	agg := NewAggregator(2, 365, "h")

	reactions := append(makeGroup("PMI", "US", 30, 3), makeGroup("CPI", "US", 30, 3)...)
	reactions = append(reactions, makeGroup("CPI", "EU", 15, 2)...)

	first, err := agg.ComputeAll(reactions)
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}

	// Reverse input order
	reversed := make([]*domain.ReactionMetrics, len(reactions))
	for i, r := range reactions {
		reversed[len(reactions)-1-i] = r
	}
	second, err := agg.ComputeAll(reversed)
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			t.Errorf("stats %d differ:\n%+v\n%+v", i, first[i], second[i])
		}
	}

	for i := 1; i < len(first); i++ {
		if KeyLess(first[i].StatsKey, first[i-1].StatsKey) {
			t.Errorf("stats not sorted at %d: %s before %s", i, first[i-1].StatsKey, first[i].StatsKey)
		}
	}
	if first[0].Family != "CPI" || first[0].Country != "" {
		t.Errorf("expected CPI all-countries group first, got %s", first[0].StatsKey)
	}
}

func TestComputeAll_NoReactions(t *testing.T) {
	agg := NewAggregator(DefaultMinEvents, 365, "")

	_, err := agg.ComputeAll(nil)
	if !errors.Is(err, ErrNoReactions) {
		t.Errorf("expected ErrNoReactions, got %v", err)
	}
}
