package cache

import (
	"context"
	"fmt"
	"time"

	"fx-impact-lab/internal/domain"
)

const statsKeyPrefix = "stats"

// allCountries replaces the empty country in keys.
const allCountries = "ALL"

// StatsKey builds the cache key of one aggregation group.
// The parameter hash is part of the key so a parameter change never hits stale entries.
func StatsKey(key domain.StatsKey, paramsHash string) string {
	country := key.Country
	if country == "" {
		country = allCountries
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d:%s",
		statsKeyPrefix, key.Family, country, key.HorizonMinutes, key.LookbackDays, paramsHash)
}

// StatsCache memoizes FamilyStats on top of a Service.
type StatsCache struct {
	svc Service
	ttl time.Duration
}

// NewStatsCache wraps svc. ttl <= 0 uses the backend default.
func NewStatsCache(svc Service, ttl time.Duration) *StatsCache {
	if svc == nil {
		svc = Nop{}
	}
	return &StatsCache{svc: svc, ttl: ttl}
}

// Get returns cached stats or ErrCacheMiss.
func (c *StatsCache) Get(ctx context.Context, key domain.StatsKey, paramsHash string) (*domain.FamilyStats, error) {
	var stats domain.FamilyStats
	if err := c.svc.Get(ctx, StatsKey(key, paramsHash), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Put stores stats under their own key and parameter hash.
func (c *StatsCache) Put(ctx context.Context, stats *domain.FamilyStats) error {
	return c.svc.Set(ctx, StatsKey(stats.StatsKey, stats.ParamsHash), stats, c.ttl)
}

// InvalidateFamily drops every cached group of a family.
func (c *StatsCache) InvalidateFamily(ctx context.Context, family domain.Family) error {
	return c.svc.DeleteByPattern(ctx, fmt.Sprintf("%s:%s:*", statsKeyPrefix, family))
}

// InvalidateAll drops every cached group.
func (c *StatsCache) InvalidateAll(ctx context.Context) error {
	return c.svc.DeleteByPattern(ctx, statsKeyPrefix+":*")
}
