package metrics

import (
	"errors"
	"sort"

	"fx-impact-lab/internal/domain"
)

// ErrNoReactions is returned when no reactions are available for aggregation.
var ErrNoReactions = errors.New("no reactions available for aggregation")

// DefaultMinEvents is the smallest group size that yields statistics.
const DefaultMinEvents = 5

// Aggregator groups reaction metrics and computes family statistics.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	minEvents    int
	lookbackDays int
	paramsHash   string
}

// NewAggregator creates a new metrics aggregator.
// minEvents below 1 is raised to 1 so empty groups are always insufficient.
func NewAggregator(minEvents, lookbackDays int, paramsHash string) *Aggregator {
	if minEvents < 1 {
		minEvents = 1
	}
	return &Aggregator{
		minEvents:    minEvents,
		lookbackDays: lookbackDays,
		paramsHash:   paramsHash,
	}
}

// MinEvents returns the sufficiency threshold.
func (a *Aggregator) MinEvents() int {
	return a.minEvents
}

// GroupReactions splits reactions by (family, country, horizon).
// Every reaction also lands in the all-countries group of its family and horizon.
// Reactions without a family are dropped.
func (a *Aggregator) GroupReactions(reactions []*domain.ReactionMetrics) map[domain.StatsKey][]*domain.ReactionMetrics {
	groups := make(map[domain.StatsKey][]*domain.ReactionMetrics)
	for _, r := range reactions {
		if r == nil || !r.Family.IsKnown() {
			continue
		}
		all := domain.StatsKey{Family: r.Family, HorizonMinutes: r.HorizonMinutes, LookbackDays: a.lookbackDays}
		groups[all] = append(groups[all], r)
		if r.Country != "" {
			byCountry := all
			byCountry.Country = r.Country
			groups[byCountry] = append(groups[byCountry], r)
		}
	}
	return groups
}

// Compute calculates the statistics of one group.
// Groups below the minimum size produce an insufficient-data sentinel:
// N is set, Sufficient is false and every statistic is zero.
func (a *Aggregator) Compute(key domain.StatsKey, reactions []*domain.ReactionMetrics) *domain.FamilyStats {
	stats := ComputeFamilyStats(key, reactions, a.minEvents)
	stats.ParamsHash = a.paramsHash
	return stats
}

// ComputeAll groups reactions and computes statistics for every group,
// sorted by key. Returns ErrNoReactions if nothing can be grouped.
func (a *Aggregator) ComputeAll(reactions []*domain.ReactionMetrics) ([]*domain.FamilyStats, error) {
	groups := a.GroupReactions(reactions)
	if len(groups) == 0 {
		return nil, ErrNoReactions
	}

	result := make([]*domain.FamilyStats, 0, len(groups))
	for _, key := range SortedKeys(groups) {
		result = append(result, a.Compute(key, groups[key]))
	}
	return result, nil
}

// ComputeFamilyStats computes statistics of one group of reactions.
// Returns the insufficient-data sentinel when fewer than minEvents reactions are given.
func ComputeFamilyStats(key domain.StatsKey, reactions []*domain.ReactionMetrics, minEvents int) *domain.FamilyStats {
	n := len(reactions)
	if n == 0 || n < minEvents {
		return &domain.FamilyStats{StatsKey: key, N: n}
	}
	return computeFromReactions(key, reactions)
}

// SortedKeys returns group keys ordered by family, country, horizon, lookback.
func SortedKeys(groups map[domain.StatsKey][]*domain.ReactionMetrics) []domain.StatsKey {
	keys := make([]domain.StatsKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return KeyLess(keys[i], keys[j])
	})
	return keys
}

// KeyLess orders stats keys by family, country, horizon, lookback.
func KeyLess(a, b domain.StatsKey) bool {
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

// SortStats orders stats in place by key.
func SortStats(stats []*domain.FamilyStats) {
	sort.Slice(stats, func(i, j int) bool {
		return KeyLess(stats[i].StatsKey, stats[j].StatsKey)
	})
}
