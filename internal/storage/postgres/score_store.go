package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/storage"
)

// ScoreStore implements storage.ScoreStore using PostgreSQL.
type ScoreStore struct {
	pool *Pool
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(pool *Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

const scoreColumns = `
	family, country, horizon_minutes, composite,
	impact_component, persistence_component, reliability_component, importance_component,
	latency_score, ttr_score, conviction_penalty, grade, tradability,
	n_events, mfe_p80, latency_median, ttr_median, p_up
`

// Upsert writes a batch of scores in one round trip, replacing existing keys.
func (s *ScoreStore) Upsert(ctx context.Context, scores []*domain.Score) error {
	if len(scores) == 0 {
		return nil
	}
	for _, sc := range scores {
		if sc == nil || !sc.Family.IsKnown() {
			return storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO family_scores (` + scoreColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18
		)
		ON CONFLICT (family, country, horizon_minutes) DO UPDATE SET
			composite = EXCLUDED.composite,
			impact_component = EXCLUDED.impact_component,
			persistence_component = EXCLUDED.persistence_component,
			reliability_component = EXCLUDED.reliability_component,
			importance_component = EXCLUDED.importance_component,
			latency_score = EXCLUDED.latency_score,
			ttr_score = EXCLUDED.ttr_score,
			conviction_penalty = EXCLUDED.conviction_penalty,
			grade = EXCLUDED.grade,
			tradability = EXCLUDED.tradability,
			n_events = EXCLUDED.n_events,
			mfe_p80 = EXCLUDED.mfe_p80,
			latency_median = EXCLUDED.latency_median,
			ttr_median = EXCLUDED.ttr_median,
			p_up = EXCLUDED.p_up,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, sc := range scores {
		batch.Queue(query,
			string(sc.Family), sc.Country, sc.HorizonMinutes, sc.Composite,
			sc.Components.Impact, sc.Components.Persistence, sc.Components.Reliability, sc.Components.Importance,
			sc.LatencyScore, sc.TTRScore, sc.ConvictionPenalty, string(sc.Grade), string(sc.Tradability),
			sc.N, sc.MFEP80, sc.LatencyMedian, sc.TTRMedian, sc.PUp,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range scores {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert family score: %w", err)
		}
	}

	return nil
}

// GetByFamily retrieves the score of a family. Returns ErrNotFound if not exists.
func (s *ScoreStore) GetByFamily(ctx context.Context, family domain.Family, country string, horizonMinutes int) (*domain.Score, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM family_scores
		WHERE family = $1 AND country = $2 AND horizon_minutes = $3
	`

	sc, err := scanScore(s.pool.QueryRow(ctx, query, string(family), country, horizonMinutes))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get score by family: %w", err)
	}
	return sc, nil
}

// GetAll retrieves all scores ordered by family, country, horizon.
func (s *ScoreStore) GetAll(ctx context.Context) ([]*domain.Score, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM family_scores
		ORDER BY family ASC, country ASC, horizon_minutes ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all scores: %w", err)
	}
	defer rows.Close()

	var scores []*domain.Score
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		scores = append(scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}

	return scores, nil
}

// scanScore scans a single row into a Score.
func scanScore(row pgx.Row) (*domain.Score, error) {
	var sc domain.Score
	var family, grade, tradability string

	err := row.Scan(
		&family, &sc.Country, &sc.HorizonMinutes, &sc.Composite,
		&sc.Components.Impact, &sc.Components.Persistence, &sc.Components.Reliability, &sc.Components.Importance,
		&sc.LatencyScore, &sc.TTRScore, &sc.ConvictionPenalty, &grade, &tradability,
		&sc.N, &sc.MFEP80, &sc.LatencyMedian, &sc.TTRMedian, &sc.PUp,
	)
	if err != nil {
		return nil, err
	}

	sc.Family = domain.Family(family)
	sc.Grade = domain.Grade(grade)
	sc.Tradability = domain.Tradability(tradability)
	return &sc, nil
}
