package reporting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/metrics"
	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/scoring"
	"fx-impact-lab/internal/storage"
)

// GeneratorVersion is stamped on every report for reproducibility.
const GeneratorVersion = "1.0.0"

// ErrNoStores is returned by GenerateStored when no stores were configured.
var ErrNoStores = errors.New("stats and score stores are required")

// Generator produces reports from run results or stored data.
type Generator struct {
	statsStore storage.FamilyStatsStore
	scoreStore storage.ScoreStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
// Stores may be nil when only Generate is used.
func NewGenerator(statsStore storage.FamilyStatsStore, scoreStore storage.ScoreStore) *Generator {
	return &Generator{
		statsStore: statsStore,
		scoreStore: scoreStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for one engine run.
func (g *Generator) Generate(ctx context.Context, result *orchestrator.RunResult) (*Report, error) {
	if result == nil {
		return nil, errors.New("nil run result")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       result.RunID,
		ParamsHash:  result.ParamsHash,
		Symbol:      result.Symbol,
		GeneratedAt: g.now(),
		DataSummary: DataSummary{
			RangeStart:       result.Start.UTC(),
			RangeEnd:         result.End.UTC(),
			EventsLoaded:     result.EventsLoaded,
			EventsAnalyzed:   result.EventsAnalyzed,
			Reactions:        len(result.Reactions),
			Groups:           len(result.Stats),
			SufficientGroups: result.SufficientGroups(),
			Scores:           len(result.Scores),
			PriceMinTs:       result.PriceMinTs,
			PriceMaxTs:       result.PriceMaxTs,
		},
		Skips:  skipRows(result.Skips),
		Stats:  StatsRows(result.Stats),
		Scores: ScoreRows(result.Scores),
	}
	g.populateReproducibility(report, result.Stats, result.Scores)
	return report, nil
}

// GenerateStored produces a report from the persisted stats and scores.
// Run-specific sections (skips, event counts) are left empty.
func (g *Generator) GenerateStored(ctx context.Context) (*Report, error) {
	if g.statsStore == nil || g.scoreStore == nil {
		return nil, ErrNoStores
	}

	stats, err := g.statsStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	scores, err := g.scoreStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	metrics.SortStats(stats)
	scoring.Rank(scores)

	sufficient := 0
	paramsHashes := make(map[string]struct{})
	for _, s := range stats {
		if s.Sufficient {
			sufficient++
		}
		paramsHashes[s.ParamsHash] = struct{}{}
	}

	report := &Report{
		GeneratedAt: g.now(),
		DataSummary: DataSummary{
			Groups:           len(stats),
			SufficientGroups: sufficient,
			Scores:           len(scores),
		},
		Stats:  StatsRows(stats),
		Scores: ScoreRows(scores),
	}
	if len(paramsHashes) == 1 {
		for h := range paramsHashes {
			report.ParamsHash = h
		}
	}
	g.populateReproducibility(report, stats, scores)
	return report, nil
}

func (g *Generator) populateReproducibility(report *Report, stats []*domain.FamilyStats, scores []*domain.Score) {
	report.Reproducibility = ReproducibilityMetadata{
		ReportTimestamp:  report.GeneratedAt,
		GeneratorVersion: GeneratorVersion,
		DataVersion:      computeDataVersion(stats, scores),
	}
}

// computeDataVersion computes a short SHA256 over the report data.
// Input order does not affect the result.
func computeDataVersion(stats []*domain.FamilyStats, scores []*domain.Score) string {
	h := sha256.New()

	statParts := make([]string, 0, len(stats))
	for _, s := range stats {
		statParts = append(statParts, fmt.Sprintf("%s|%s|%d|%.6f|%.6f|%.6f",
			s.StatsKey.String(), s.ParamsHash, s.N, s.MFEP80, s.LatencyMedian, s.TTRMedian))
	}
	sort.Strings(statParts)
	h.Write([]byte("STATS\n"))
	h.Write([]byte(strings.Join(statParts, "\n")))

	scoreParts := make([]string, 0, len(scores))
	for _, s := range scores {
		scoreParts = append(scoreParts, fmt.Sprintf("%s|%s|%d|%.6f|%s",
			s.Family, s.Country, s.HorizonMinutes, s.Composite, s.Grade))
	}
	sort.Strings(scoreParts)
	h.Write([]byte("\nSCORES\n"))
	h.Write([]byte(strings.Join(scoreParts, "\n")))

	return hex.EncodeToString(h.Sum(nil))[:12]
}

func skipRows(report orchestrator.SkipReport) []SkipRow {
	total := report.Total()
	sorted := report.Sorted()
	rows := make([]SkipRow, 0, len(sorted))
	for _, sc := range sorted {
		row := SkipRow{Reason: string(sc.Reason), Count: sc.Count}
		if total > 0 {
			row.Share = float64(sc.Count) / float64(total)
		}
		rows = append(rows, row)
	}
	return rows
}

// StatsRows converts stats to report rows, preserving order.
func StatsRows(stats []*domain.FamilyStats) []StatsRow {
	rows := make([]StatsRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, StatsRow{
			Family:         s.Family.String(),
			Country:        s.Country,
			HorizonMinutes: s.HorizonMinutes,
			LookbackDays:   s.LookbackDays,
			N:              s.N,
			Sufficient:     s.Sufficient,
			PUp:            s.PUp,
			PDown:          s.PDown,
			MFEMedian:      s.MFEMedian,
			MFEP80:         s.MFEP80,
			MFEP90:         s.MFEP90,
			MFEMean:        s.MFEMean,
			MFEStddev:      s.MFEStddev,
			LatencyMedian:  s.LatencyMedian,
			LatencyP20:     s.LatencyP20,
			LatencyP80:     s.LatencyP80,
			TTRMedian:      s.TTRMedian,
			TTRP20:         s.TTRP20,
			TTRP80:         s.TTRP80,
			ReactionRate:   s.ReactionRate,
			EmpiricalScore: s.EmpiricalScore,
			ImpactLevel:    s.ImpactLevel,
		})
	}
	return rows
}

// ScoreRows converts ranked scores to report rows. Rank follows input order.
func ScoreRows(scores []*domain.Score) []ScoreRow {
	rows := make([]ScoreRow, 0, len(scores))
	for i, s := range scores {
		rows = append(rows, ScoreRow{
			Rank:              i + 1,
			Family:            s.Family.String(),
			Country:           s.Country,
			HorizonMinutes:    s.HorizonMinutes,
			Composite:         s.Composite,
			Impact:            s.Components.Impact,
			Persistence:       s.Components.Persistence,
			Reliability:       s.Components.Reliability,
			Importance:        s.Components.Importance,
			LatencyScore:      s.LatencyScore,
			TTRScore:          s.TTRScore,
			ConvictionPenalty: s.ConvictionPenalty,
			Grade:             string(s.Grade),
			Tradability:       string(s.Tradability),
			N:                 s.N,
			MFEP80:            s.MFEP80,
			LatencyMedian:     s.LatencyMedian,
			TTRMedian:         s.TTRMedian,
			PUp:               s.PUp,
		})
	}
	return rows
}
