package storage

import (
	"context"

	"fx-impact-lab/internal/domain"
)

// EventStore provides access to the economic_events storage.
type EventStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate event_id.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, eventID string) (*domain.Event, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive),
	// ordered by timestamp ASC, event_id ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error)
}

// PriceSampleStore provides access to price_samples storage.
// Samples are keyed by (symbol, timestamp_ms).
type PriceSampleStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, samples []*domain.PriceSample) error

	// GetLatestAtOrBefore returns the most recent sample with timestamp <= ts.
	// Returns ErrNotFound if the feed has no sample at or before ts.
	GetLatestAtOrBefore(ctx context.Context, symbol string, ts int64) (*domain.PriceSample, error)

	// GetByTimeRange retrieves samples within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceSample, error)

	// GetTimeRange returns min and max timestamps of the symbol's feed.
	// Returns zeros when the symbol has no data.
	GetTimeRange(ctx context.Context, symbol string) (minTs, maxTs int64, err error)
}

// ReactionStore provides access to reaction_metrics storage.
// Reactions are derived records keyed by (event_id, horizon_minutes, params_hash);
// writing an existing key replaces it.
type ReactionStore interface {
	// Upsert writes reactions computed with the given parameter hash.
	Upsert(ctx context.Context, paramsHash string, reactions []*domain.ReactionMetrics) error

	// GetByFamily retrieves reactions of a family and horizon computed with paramsHash,
	// ordered by event time ASC, event_id ASC.
	GetByFamily(ctx context.Context, paramsHash string, family domain.Family, horizonMinutes int) ([]*domain.ReactionMetrics, error)
}

// FamilyStatsStore provides access to family_stats storage.
// Stats are keyed by (family, country, horizon, lookback, params_hash);
// writing an existing key replaces it.
type FamilyStatsStore interface {
	// Upsert writes a batch of stats.
	Upsert(ctx context.Context, stats []*domain.FamilyStats) error

	// GetByKey retrieves stats for one group. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, key domain.StatsKey, paramsHash string) (*domain.FamilyStats, error)

	// GetAll retrieves all stats ordered by family, country, horizon, lookback.
	GetAll(ctx context.Context) ([]*domain.FamilyStats, error)
}

// ScoreStore provides access to family_scores storage.
// Scores are keyed by (family, country, horizon_minutes); writing an existing key replaces it.
type ScoreStore interface {
	// Upsert writes a batch of scores.
	Upsert(ctx context.Context, scores []*domain.Score) error

	// GetByFamily retrieves the score of a family for a country and horizon.
	// Returns ErrNotFound if not exists.
	GetByFamily(ctx context.Context, family domain.Family, country string, horizonMinutes int) (*domain.Score, error)

	// GetAll retrieves all scores ordered by family, country, horizon.
	GetAll(ctx context.Context) ([]*domain.Score, error)
}
