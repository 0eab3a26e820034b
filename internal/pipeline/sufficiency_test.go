package pipeline

import (
	"testing"
	"time"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/orchestrator"
)

func passingResult() *orchestrator.RunResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	skips := orchestrator.NewSkipReport()
	skips.Add(orchestrator.SkipUnclassified)
	skips.Add(orchestrator.SkipMissingAnchor)

	reactions := make([]*domain.ReactionMetrics, 9)
	for i := range reactions {
		reactions[i] = &domain.ReactionMetrics{EventID: "e"}
	}

	return &orchestrator.RunResult{
		Symbol:         "EURUSD",
		Start:          start,
		End:            end,
		EventsLoaded:   6,
		EventsAnalyzed: 5,
		PriceMinTs:     start.AddDate(0, 0, -10).UnixMilli(),
		PriceMaxTs:     end.AddDate(0, 0, -1).UnixMilli(),
		Reactions:      reactions,
		Stats: []*domain.FamilyStats{
			{Sufficient: true},
			{Sufficient: false},
		},
		Skips: skips,
	}
}

func findCheck(t *testing.T, result *SufficiencyResult, name string) SufficiencyCheck {
	t.Helper()
	for _, c := range result.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return SufficiencyCheck{}
}

func TestSufficiencyChecker_AllPass(t *testing.T) {
	result := NewSufficiencyChecker(DefaultSufficiencyThresholds()).Check(passingResult())

	if !result.AllPass {
		for _, c := range result.Checks {
			t.Logf("%s: %s (threshold %s) pass=%v", c.Name, c.Actual, c.Threshold, c.Pass)
		}
		t.Fatal("expected all checks to pass")
	}
	if len(result.Checks) != 5 {
		t.Errorf("expected 5 checks, got %d", len(result.Checks))
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	priced := findCheck(t, result, "Events with price reaction")
	if priced.Actual != "100.0% (5/5)" {
		t.Errorf("priced actual = %q", priced.Actual)
	}
	skipped := findCheck(t, result, "Skipped reactions")
	if skipped.Actual != "10.0% (1/10)" {
		t.Errorf("skipped actual = %q", skipped.Actual)
	}
}

func TestSufficiencyChecker_EmptyFeed(t *testing.T) {
	run := passingResult()
	run.PriceMinTs, run.PriceMaxTs = 0, 0

	result := NewSufficiencyChecker(DefaultSufficiencyThresholds()).Check(run)

	if result.AllPass {
		t.Error("expected failure with empty feed")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "price feed for EURUSD is empty" {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestSufficiencyChecker_FeedOutsideRange(t *testing.T) {
	run := passingResult()
	run.PriceMinTs = run.End.AddDate(0, 0, 1).UnixMilli()
	run.PriceMaxTs = run.End.AddDate(0, 0, 5).UnixMilli()

	result := NewSufficiencyChecker(DefaultSufficiencyThresholds()).Check(run)

	if findCheck(t, result, "Price feed overlaps range").Pass {
		t.Error("feed after the range should fail")
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected one integrity error, got %v", result.Errors)
	}
}

func TestSufficiencyChecker_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*orchestrator.RunResult)
		check  string
	}{
		{
			name:   "no events",
			mutate: func(r *orchestrator.RunResult) { r.EventsLoaded = 0 },
			check:  "Events in range",
		},
		{
			name:   "few priced events",
			mutate: func(r *orchestrator.RunResult) { r.EventsAnalyzed = 3 },
			check:  "Events with price reaction",
		},
		{
			name: "too many skips",
			mutate: func(r *orchestrator.RunResult) {
				for i := 0; i < 20; i++ {
					r.Skips.Add(orchestrator.SkipInsufficientWindow)
				}
			},
			check: "Skipped reactions",
		},
		{
			name:   "no sufficient group",
			mutate: func(r *orchestrator.RunResult) { r.Stats[0].Sufficient = false },
			check:  "Sufficient groups",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := passingResult()
			tt.mutate(run)

			result := NewSufficiencyChecker(DefaultSufficiencyThresholds()).Check(run)

			if result.AllPass {
				t.Error("expected AllPass = false")
			}
			if findCheck(t, result, tt.check).Pass {
				t.Errorf("check %q should fail", tt.check)
			}
		})
	}
}

func TestSufficiencyChecker_CountryFilteredNotCounted(t *testing.T) {
	run := passingResult()
	for i := 0; i < 50; i++ {
		run.Skips.Add(orchestrator.SkipCountryFiltered)
	}
	run.EventsLoaded += 50

	result := NewSufficiencyChecker(DefaultSufficiencyThresholds()).Check(run)

	if !result.AllPass {
		t.Errorf("filtered events must not count as skipped reactions: %+v", result.Checks)
	}
}

func TestConvertToDataQuality(t *testing.T) {
	in := &SufficiencyResult{
		Checks:  []SufficiencyCheck{{Name: "a", Threshold: ">= 1", Actual: "0", Pass: false}},
		AllPass: false,
		Errors:  []string{"boom"},
	}

	dq := convertToDataQuality(in)

	if dq.AllChecksPassed {
		t.Error("AllChecksPassed should be false")
	}
	if len(dq.SufficiencyChecks) != 1 || dq.SufficiencyChecks[0].Name != "a" {
		t.Errorf("checks = %+v", dq.SufficiencyChecks)
	}
	if len(dq.IntegrityErrors) != 1 {
		t.Errorf("errors = %v", dq.IntegrityErrors)
	}
}
