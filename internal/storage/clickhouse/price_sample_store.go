package clickhouse

import (
	"context"
	"fmt"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

// PriceSampleStore implements storage.PriceSampleStore using ClickHouse.
type PriceSampleStore struct {
	conn *Conn
}

// NewPriceSampleStore creates a new PriceSampleStore.
func NewPriceSampleStore(conn *Conn) *PriceSampleStore {
	return &PriceSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

type priceKey struct {
	symbol      string
	timestampMs int64
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate (symbol, timestamp_ms).
// MergeTree does not enforce uniqueness, so duplicates are checked before the insert.
func (s *PriceSampleStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	// Intra-batch duplicates, and the time span per symbol for the DB check
	type span struct{ min, max int64 }
	spans := make(map[string]*span)
	seen := make(map[priceKey]struct{}, len(samples))
	for _, p := range samples {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := priceKey{p.Symbol, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		sp, ok := spans[p.Symbol]
		if !ok {
			spans[p.Symbol] = &span{p.TimestampMs, p.TimestampMs}
			continue
		}
		if p.TimestampMs < sp.min {
			sp.min = p.TimestampMs
		}
		if p.TimestampMs > sp.max {
			sp.max = p.TimestampMs
		}
	}

	// Duplicates against existing rows, one range query per symbol
	for symbol, sp := range spans {
		existing, err := s.GetByTimeRange(ctx, symbol, sp.min, sp.max)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, e := range existing {
			if _, dup := seen[priceKey{symbol, e.TimestampMs}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO price_samples (symbol, timestamp_ms, close)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		if err := batch.Append(p.Symbol, p.TimestampMs, p.Close); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetLatestAtOrBefore returns the most recent sample with timestamp <= ts.
func (s *PriceSampleStore) GetLatestAtOrBefore(ctx context.Context, symbol string, ts int64) (*domain.PriceSample, error) {
	query := `
		SELECT symbol, timestamp_ms, close
		FROM price_samples
		WHERE symbol = ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, symbol, ts)
	if err != nil {
		return nil, fmt.Errorf("query latest at or before: %w", err)
	}
	defer rows.Close()

	samples, err := scanPriceSamples(rows)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, storage.ErrNotFound
	}
	return samples[0], nil
}

// GetByTimeRange retrieves samples within [start, end] (inclusive), ordered by timestamp ASC.
func (s *PriceSampleStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceSample, error) {
	query := `
		SELECT symbol, timestamp_ms, close
		FROM price_samples
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// GetTimeRange returns min and max timestamps of the symbol's feed.
func (s *PriceSampleStore) GetTimeRange(ctx context.Context, symbol string) (minTs, maxTs int64, err error) {
	query := `
		SELECT count(*), min(timestamp_ms), max(timestamp_ms)
		FROM price_samples
		WHERE symbol = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol).Scan(&count, &minTs, &maxTs); err != nil {
		return 0, 0, fmt.Errorf("query time range: %w", err)
	}
	if count == 0 {
		return 0, 0, nil
	}
	return minTs, maxTs, nil
}

// scanPriceSamples scans multiple rows.
func scanPriceSamples(rows chRows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample
		if err := rows.Scan(&p.Symbol, &p.TimestampMs, &p.Close); err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}
		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
