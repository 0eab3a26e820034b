package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

// ReactionStore implements storage.ReactionStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (params_hash, family, horizon, event_id);
// reads use FINAL so the latest version is returned before background merges run.
type ReactionStore struct {
	conn *Conn
	now  func() time.Time
}

// NewReactionStore creates a new ReactionStore.
func NewReactionStore(conn *Conn) *ReactionStore {
	return &ReactionStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.ReactionStore = (*ReactionStore)(nil)

// Upsert writes reactions computed with paramsHash, replacing existing keys.
func (s *ReactionStore) Upsert(ctx context.Context, paramsHash string, reactions []*domain.ReactionMetrics) error {
	if len(reactions) == 0 {
		return nil
	}
	for _, r := range reactions {
		if r == nil || r.EventID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO reaction_metrics (
			params_hash, event_id, family, country, event_time_ms, horizon_minutes,
			entry_price, latency_minutes, peak_time_minutes, mfe_pips, direction,
			ttr_minutes, reacted, sample_count, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(s.now().UnixNano())
	for _, r := range reactions {
		err = batch.Append(
			paramsHash, r.EventID, string(r.Family), r.Country, r.EventTimeMs, uint16(r.HorizonMinutes),
			r.EntryPrice, r.LatencyMinutes, r.PeakTimeMinutes, r.MFEPips, int8(r.Direction),
			r.TTRMinutes, boolToUInt8(r.Reacted), uint32(r.SampleCount), version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByFamily retrieves reactions of a family and horizon, ordered by event time, event_id.
func (s *ReactionStore) GetByFamily(ctx context.Context, paramsHash string, family domain.Family, horizonMinutes int) ([]*domain.ReactionMetrics, error) {
	query := `
		SELECT
			event_id, family, country, event_time_ms, horizon_minutes,
			entry_price, latency_minutes, peak_time_minutes, mfe_pips, direction,
			ttr_minutes, reacted, sample_count
		FROM reaction_metrics FINAL
		WHERE params_hash = ? AND family = ? AND horizon_minutes = ?
		ORDER BY event_time_ms ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, paramsHash, string(family), uint16(horizonMinutes))
	if err != nil {
		return nil, fmt.Errorf("query reactions by family: %w", err)
	}
	defer rows.Close()

	return scanReactions(rows)
}

// scanReactions scans multiple rows.
func scanReactions(rows chRows) ([]*domain.ReactionMetrics, error) {
	var reactions []*domain.ReactionMetrics

	for rows.Next() {
		var r domain.ReactionMetrics
		var family string
		var horizon uint16
		var direction int8
		var reacted uint8
		var sampleCount uint32

		err := rows.Scan(
			&r.EventID, &family, &r.Country, &r.EventTimeMs, &horizon,
			&r.EntryPrice, &r.LatencyMinutes, &r.PeakTimeMinutes, &r.MFEPips, &direction,
			&r.TTRMinutes, &reacted, &sampleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reaction row: %w", err)
		}

		r.Family = domain.Family(family)
		r.HorizonMinutes = int(horizon)
		r.Direction = domain.Direction(direction)
		r.Reacted = reacted == 1
		r.SampleCount = int(sampleCount)
		reactions = append(reactions, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reaction rows: %w", err)
	}

	return reactions, nil
}
