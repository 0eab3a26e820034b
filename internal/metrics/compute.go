package metrics

import (
	"math"
	"sort"

	"fx-impact-lab/internal/domain"
)

// Empirical impact score thresholds.
const (
	impactLevelHighScore   = 70.0
	impactLevelMediumScore = 40.0
)

// computeFromReactions calculates all statistics of one group.
// Reactions must be non-empty; callers handle the insufficient case.
// Reactions are sorted by EventTimeMs ASC, EventID ASC before computing so
// that floating-point sums are bit-identical across runs.
func computeFromReactions(key domain.StatsKey, reactions []*domain.ReactionMetrics) *domain.FamilyStats {
	n := len(reactions)

	sorted := make([]*domain.ReactionMetrics, n)
	copy(sorted, reactions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EventTimeMs != sorted[j].EventTimeMs {
			return sorted[i].EventTimeMs < sorted[j].EventTimeMs
		}
		return sorted[i].EventID < sorted[j].EventID
	})

	ups := 0
	reacted := 0
	mfe := make([]float64, n)
	latency := make([]float64, n)
	ttr := make([]float64, n)
	var reactedLatency []float64
	for i, r := range sorted {
		if r.Direction == domain.DirectionUp {
			ups++
		}
		if r.Reacted {
			reacted++
			reactedLatency = append(reactedLatency, r.LatencyMinutes)
		}
		mfe[i] = r.MFEPips
		latency[i] = r.LatencyMinutes
		ttr[i] = r.TTRMinutes
	}

	mfeMean := computeMean(mfe)

	sortedMFE := sortedCopy(mfe)
	sortedLatency := sortedCopy(latency)
	sortedTTR := sortedCopy(ttr)

	pUp := float64(ups) / float64(n)

	stats := &domain.FamilyStats{
		StatsKey:   key,
		N:          n,
		Sufficient: true,

		PUp:   pUp,
		PDown: 1 - pUp,

		MFEMedian: computePercentile(sortedMFE, 0.50),
		MFEP80:    computePercentile(sortedMFE, 0.80),
		MFEP90:    computePercentile(sortedMFE, 0.90),
		MFEMean:   mfeMean,
		MFEStddev: computeStddev(mfe, mfeMean),

		LatencyMedian: computePercentile(sortedLatency, 0.50),
		LatencyP20:    computePercentile(sortedLatency, 0.20),
		LatencyP80:    computePercentile(sortedLatency, 0.80),

		TTRMedian: computePercentile(sortedTTR, 0.50),
		TTRP20:    computePercentile(sortedTTR, 0.20),
		TTRP80:    computePercentile(sortedTTR, 0.80),

		ReactionRate: float64(reacted) / float64(n),
	}

	stats.EmpiricalScore = computeEmpiricalScore(mfeMean, stats.ReactionRate, computeMean(reactedLatency))
	stats.ImpactLevel = classifyImpactLevel(stats.EmpiricalScore)

	return stats
}

// computeEmpiricalScore combines volatility (0-40, one point per pip),
// reaction frequency (0-30) and speed (0-30, one point lost per minute).
// meanLatency of 0 means no event reacted and scores no speed points.
func computeEmpiricalScore(mfeMean, reactionRate, meanLatency float64) float64 {
	volatility := math.Min(mfeMean, 40)
	frequency := reactionRate * 30
	speed := 0.0
	if meanLatency > 0 {
		speed = math.Max(0, 30-meanLatency)
	}
	return volatility + frequency + speed
}

// classifyImpactLevel buckets an empirical score.
func classifyImpactLevel(score float64) string {
	switch {
	case score >= impactLevelHighScore:
		return domain.ImpactLevelHigh
	case score >= impactLevelMediumScore:
		return domain.ImpactLevelMedium
	default:
		return domain.ImpactLevelLow
	}
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation between order statistics.
// sorted must be pre-sorted ASC.
// p is percentile (0.80 = 80th percentile); index = p*(n-1).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	// Linear interpolation
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Percentile returns the p-th percentile of values using the engine-wide rule:
// sort ascending, index = p*(n-1), interpolate linearly between neighbours.
// values is not modified.
func Percentile(values []float64, p float64) float64 {
	return computePercentile(sortedCopy(values), p)
}
