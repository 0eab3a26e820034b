package metrics

import (
	"math"
	"testing"

	"fx-impact-lab/internal/domain"
)

const tolerance = 1e-9

func makeReaction(id string, ts int64, mfe, latency, ttr float64, dir domain.Direction, reacted bool) *domain.ReactionMetrics {
	return &domain.ReactionMetrics{
		EventID:        id,
		Family:         "CPI",
		Country:        "US",
		EventTimeMs:    ts,
		HorizonMinutes: 30,
		MFEPips:        mfe,
		LatencyMinutes: latency,
		TTRMinutes:     ttr,
		Direction:      dir,
		Reacted:        reacted,
	}
}

func TestComputePercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{4, 6, 8, 10, 12, 14, 16, 18, 20, 22}

	// index = 0.5*9 = 4.5 → between 12 and 14
	if got := computePercentile(sorted, 0.50); math.Abs(got-13) > tolerance {
		t.Errorf("expected median 13, got %f", got)
	}
	// index = 0.8*9 = 7.2 → 18 + 0.2*(20-18)
	if got := computePercentile(sorted, 0.80); math.Abs(got-18.4) > tolerance {
		t.Errorf("expected p80 18.4, got %f", got)
	}
	// index = 0.2*9 = 1.8 → 6 + 0.8*(8-6)
	if got := computePercentile(sorted, 0.20); math.Abs(got-7.6) > tolerance {
		t.Errorf("expected p20 7.6, got %f", got)
	}
}

func TestComputePercentile_EdgeCases(t *testing.T) {
	if got := computePercentile(nil, 0.8); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
	if got := computePercentile([]float64{7}, 0.8); got != 7 {
		t.Errorf("expected single value 7, got %f", got)
	}
	if got := computePercentile([]float64{1, 2, 3}, 1.0); got != 3 {
		t.Errorf("expected max 3 at p100, got %f", got)
	}
	if got := computePercentile([]float64{1, 2, 3}, 0); got != 1 {
		t.Errorf("expected min 1 at p0, got %f", got)
	}
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	values := []float64{22, 4, 18, 10}
	got := Percentile(values, 0.5)

	if math.Abs(got-14) > tolerance {
		t.Errorf("expected median 14, got %f", got)
	}
	if values[0] != 22 || values[1] != 4 {
		t.Errorf("input was reordered: %v", values)
	}
}

func TestComputeStddev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}
	// Sample stddev: sqrt(32/7)
	expected := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); math.Abs(got-expected) > tolerance {
		t.Errorf("expected stddev %f, got %f", expected, got)
	}
	if got := computeStddev([]float64{3}, 3); got != 0 {
		t.Errorf("expected 0 stddev for single sample, got %f", got)
	}
}

func TestComputeEmpiricalScore(t *testing.T) {
	tests := []struct {
		name      string
		mfeMean   float64
		rate      float64
		latency   float64
		wantScore float64
		wantLevel string
	}{
		{"volatility capped", 60, 1, 2, 40 + 30 + 28, domain.ImpactLevelHigh},
		{"medium", 20, 0.5, 15, 20 + 15 + 15, domain.ImpactLevelMedium},
		{"no reaction gets no speed", 10, 0, 0, 10, domain.ImpactLevelLow},
		{"slow latency floors at zero", 30, 0.4, 45, 30 + 12, domain.ImpactLevelMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := computeEmpiricalScore(tt.mfeMean, tt.rate, tt.latency)
			if math.Abs(score-tt.wantScore) > tolerance {
				t.Errorf("expected score %f, got %f", tt.wantScore, score)
			}
			if level := classifyImpactLevel(score); level != tt.wantLevel {
				t.Errorf("expected level %s, got %s", tt.wantLevel, level)
			}
		})
	}
}

func TestComputeFromReactions_Distribution(t *testing.T) {
	mfes := []float64{4, 6, 8, 10, 12, 14, 16, 18, 20, 22}
	reactions := make([]*domain.ReactionMetrics, len(mfes))
	for i, mfe := range mfes {
		dir := domain.DirectionUp
		if i%4 == 0 {
			dir = domain.DirectionDown
		}
		reactions[i] = makeReaction(string(rune('a'+i)), int64(i)*1000, mfe, float64(i+1), float64(20-i), dir, mfe >= 5)
	}

	stats := computeFromReactions(domain.StatsKey{Family: "CPI", HorizonMinutes: 30}, reactions)

	if stats.N != 10 || !stats.Sufficient {
		t.Fatalf("expected sufficient group of 10, got n=%d sufficient=%v", stats.N, stats.Sufficient)
	}
	if math.Abs(stats.MFEMedian-13) > tolerance {
		t.Errorf("expected MFE median 13, got %f", stats.MFEMedian)
	}
	if math.Abs(stats.MFEP80-18.4) > tolerance {
		t.Errorf("expected MFE p80 18.4, got %f", stats.MFEP80)
	}
	if math.Abs(stats.MFEMean-13) > tolerance {
		t.Errorf("expected MFE mean 13, got %f", stats.MFEMean)
	}
	// Down at i = 0, 4, 8
	if math.Abs(stats.PUp-0.7) > tolerance {
		t.Errorf("expected PUp 0.7, got %f", stats.PUp)
	}
	if math.Abs(stats.PUp+stats.PDown-1) > tolerance {
		t.Errorf("PUp + PDown = %f, want 1", stats.PUp+stats.PDown)
	}
	if math.Abs(stats.ReactionRate-0.9) > tolerance {
		t.Errorf("expected reaction rate 0.9, got %f", stats.ReactionRate)
	}
	// Latency 1..10 → median 5.5; TTR 11..20 → median 15.5
	if math.Abs(stats.LatencyMedian-5.5) > tolerance {
		t.Errorf("expected latency median 5.5, got %f", stats.LatencyMedian)
	}
	if math.Abs(stats.TTRMedian-15.5) > tolerance {
		t.Errorf("expected TTR median 15.5, got %f", stats.TTRMedian)
	}
}

func TestComputeFromReactions_Monotonicity(t *testing.T) {
	reactions := []*domain.ReactionMetrics{
		makeReaction("e1", 1, 30, 9, 1, domain.DirectionUp, true),
		makeReaction("e2", 2, 2, 30, 28, domain.DirectionDown, false),
		makeReaction("e3", 3, 11, 3, 7, domain.DirectionUp, true),
		makeReaction("e4", 4, 7, 1, 14, domain.DirectionUp, true),
		makeReaction("e5", 5, 19, 2, 3, domain.DirectionDown, true),
		makeReaction("e6", 6, 5, 12, 22, domain.DirectionUp, true),
	}

	stats := computeFromReactions(domain.StatsKey{Family: "CPI", HorizonMinutes: 30}, reactions)

	if stats.MFEMedian > stats.MFEP80 || stats.MFEP80 > stats.MFEP90 {
		t.Errorf("MFE percentiles not monotone: %f %f %f", stats.MFEMedian, stats.MFEP80, stats.MFEP90)
	}
	if stats.LatencyP20 > stats.LatencyMedian || stats.LatencyMedian > stats.LatencyP80 {
		t.Errorf("latency percentiles not monotone: %f %f %f", stats.LatencyP20, stats.LatencyMedian, stats.LatencyP80)
	}
	if stats.TTRP20 > stats.TTRMedian || stats.TTRMedian > stats.TTRP80 {
		t.Errorf("TTR percentiles not monotone: %f %f %f", stats.TTRP20, stats.TTRMedian, stats.TTRP80)
	}
}

func TestComputeFromReactions_OrderIndependent(t *testing.T) {
	a := []*domain.ReactionMetrics{
		makeReaction("e1", 100, 3.3, 2, 5, domain.DirectionUp, false),
		makeReaction("e2", 200, 7.1, 1, 9, domain.DirectionDown, true),
		makeReaction("e3", 300, 12.7, 4, 2, domain.DirectionUp, true),
		makeReaction("e4", 400, 0.1, 30, 30, domain.DirectionUp, false),
		makeReaction("e5", 500, 9.9, 6, 11, domain.DirectionDown, true),
	}
	b := []*domain.ReactionMetrics{a[3], a[0], a[4], a[2], a[1]}

	key := domain.StatsKey{Family: "CPI", HorizonMinutes: 30}
	sa := computeFromReactions(key, a)
	sb := computeFromReactions(key, b)

	if *sa != *sb {
		t.Errorf("stats differ by input order:\n%+v\n%+v", sa, sb)
	}
}
