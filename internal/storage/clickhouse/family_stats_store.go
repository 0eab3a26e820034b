package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

// FamilyStatsStore implements storage.FamilyStatsStore using ClickHouse.
// The table is a ReplacingMergeTree; reads use FINAL.
type FamilyStatsStore struct {
	conn *Conn
	now  func() time.Time
}

// NewFamilyStatsStore creates a new FamilyStatsStore.
func NewFamilyStatsStore(conn *Conn) *FamilyStatsStore {
	return &FamilyStatsStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.FamilyStatsStore = (*FamilyStatsStore)(nil)

const familyStatsColumns = `
	family, country, horizon_minutes, lookback_days, params_hash,
	n_events, sufficient, p_up, p_down,
	mfe_median, mfe_p80, mfe_p90, mfe_mean, mfe_stddev,
	latency_median, latency_p20, latency_p80,
	ttr_median, ttr_p20, ttr_p80,
	reaction_rate, empirical_score, impact_level
`

// Upsert writes a batch of stats, replacing existing keys.
func (s *FamilyStatsStore) Upsert(ctx context.Context, stats []*domain.FamilyStats) error {
	if len(stats) == 0 {
		return nil
	}
	for _, st := range stats {
		if st == nil || !st.Family.IsKnown() {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO family_stats (`+familyStatsColumns+`, version)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(s.now().UnixNano())
	for _, st := range stats {
		err = batch.Append(
			string(st.Family), st.Country, uint16(st.HorizonMinutes), uint32(st.LookbackDays), st.ParamsHash,
			uint32(st.N), boolToUInt8(st.Sufficient), st.PUp, st.PDown,
			st.MFEMedian, st.MFEP80, st.MFEP90, st.MFEMean, st.MFEStddev,
			st.LatencyMedian, st.LatencyP20, st.LatencyP80,
			st.TTRMedian, st.TTRP20, st.TTRP80,
			st.ReactionRate, st.EmpiricalScore, st.ImpactLevel,
			version,
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

// GetByKey retrieves stats for one group. Returns ErrNotFound if not exists.
func (s *FamilyStatsStore) GetByKey(ctx context.Context, key domain.StatsKey, paramsHash string) (*domain.FamilyStats, error) {
	query := `
		SELECT ` + familyStatsColumns + `
		FROM family_stats FINAL
		WHERE family = ? AND country = ? AND horizon_minutes = ? AND lookback_days = ? AND params_hash = ?
	`

	rows, err := s.conn.Query(ctx, query,
		string(key.Family), key.Country, uint16(key.HorizonMinutes), uint32(key.LookbackDays), paramsHash,
	)
	if err != nil {
		return nil, fmt.Errorf("query family stats by key: %w", err)
	}
	defer rows.Close()

	stats, err := scanFamilyStats(rows)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, storage.ErrNotFound
	}
	return stats[0], nil
}

// GetAll retrieves all stats ordered by family, country, horizon, lookback.
func (s *FamilyStatsStore) GetAll(ctx context.Context) ([]*domain.FamilyStats, error) {
	query := `
		SELECT ` + familyStatsColumns + `
		FROM family_stats FINAL
		ORDER BY family ASC, country ASC, horizon_minutes ASC, lookback_days ASC, params_hash ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all family stats: %w", err)
	}
	defer rows.Close()

	return scanFamilyStats(rows)
}

// scanFamilyStats scans multiple rows.
func scanFamilyStats(rows chRows) ([]*domain.FamilyStats, error) {
	var result []*domain.FamilyStats

	for rows.Next() {
		var st domain.FamilyStats
		var family string
		var horizon uint16
		var lookback, n uint32
		var sufficient uint8

		err := rows.Scan(
			&family, &st.Country, &horizon, &lookback, &st.ParamsHash,
			&n, &sufficient, &st.PUp, &st.PDown,
			&st.MFEMedian, &st.MFEP80, &st.MFEP90, &st.MFEMean, &st.MFEStddev,
			&st.LatencyMedian, &st.LatencyP20, &st.LatencyP80,
			&st.TTRMedian, &st.TTRP20, &st.TTRP80,
			&st.ReactionRate, &st.EmpiricalScore, &st.ImpactLevel,
		)
		if err != nil {
			return nil, fmt.Errorf("scan family stats row: %w", err)
		}

		st.Family = domain.Family(family)
		st.HorizonMinutes = int(horizon)
		st.LookbackDays = int(lookback)
		st.N = int(n)
		st.Sufficient = sufficient == 1
		result = append(result, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate family stats rows: %w", err)
	}

	return result, nil
}
