package pipeline

import (
	"fmt"
	"time"

	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/reporting"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyThresholds configures the checks.
type SufficiencyThresholds struct {
	MinEvents           int     // events loaded in range
	MinPricedShare      float64 // selected events with at least one reaction, [0,1]
	MaxSkipShare        float64 // skipped event-horizon pairs, [0,1]
	MinSufficientGroups int
}

// DefaultSufficiencyThresholds returns the thresholds used by the report commands.
func DefaultSufficiencyThresholds() SufficiencyThresholds {
	return SufficiencyThresholds{
		MinEvents:           1,
		MinPricedShare:      0.8,
		MaxSkipShare:        0.5,
		MinSufficientGroups: 1,
	}
}

// SufficiencyChecker validates that a run had enough data to be trusted.
type SufficiencyChecker struct {
	thresholds SufficiencyThresholds
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(thresholds SufficiencyThresholds) *SufficiencyChecker {
	return &SufficiencyChecker{thresholds: thresholds}
}

// Check evaluates the run result against every threshold.
func (c *SufficiencyChecker) Check(result *orchestrator.RunResult) *SufficiencyResult {
	out := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 5),
		AllPass: true,
		Errors:  []string{},
	}
	add := func(check SufficiencyCheck) {
		out.Checks = append(out.Checks, check)
		if !check.Pass {
			out.AllPass = false
		}
	}

	add(c.checkEventsLoaded(result))

	feedCheck, feedErrors := c.checkPriceFeed(result)
	add(feedCheck)
	out.Errors = append(out.Errors, feedErrors...)

	add(c.checkPricedEvents(result))
	add(c.checkSkipShare(result))
	add(c.checkSufficientGroups(result))

	return out
}

// checkEventsLoaded: events loaded in the run range >= MinEvents.
func (c *SufficiencyChecker) checkEventsLoaded(result *orchestrator.RunResult) SufficiencyCheck {
	return SufficiencyCheck{
		Name:      "Events in range",
		Threshold: fmt.Sprintf(">= %d", c.thresholds.MinEvents),
		Actual:    fmt.Sprintf("%d", result.EventsLoaded),
		Pass:      result.EventsLoaded >= c.thresholds.MinEvents,
	}
}

// checkPriceFeed: the price feed must overlap the run range.
func (c *SufficiencyChecker) checkPriceFeed(result *orchestrator.RunResult) (SufficiencyCheck, []string) {
	check := SufficiencyCheck{
		Name:      "Price feed overlaps range",
		Threshold: "yes",
	}
	if result.PriceMaxTs == 0 {
		check.Actual = "no price data"
		return check, []string{fmt.Sprintf("price feed for %s is empty", result.Symbol)}
	}

	start, end := result.Start.UnixMilli(), result.End.UnixMilli()
	lo := max(start, result.PriceMinTs)
	hi := min(end, result.PriceMaxTs)
	if hi < lo {
		check.Actual = fmt.Sprintf("feed %s..%s outside range", formatDay(result.PriceMinTs), formatDay(result.PriceMaxTs))
		return check, []string{fmt.Sprintf("price feed for %s does not overlap the event range", result.Symbol)}
	}

	days := float64(hi-lo) / float64(24*time.Hour/time.Millisecond)
	check.Actual = fmt.Sprintf("%.1f days", days)
	check.Pass = true
	return check, nil
}

// checkPricedEvents: share of selected events that produced at least one reaction.
func (c *SufficiencyChecker) checkPricedEvents(result *orchestrator.RunResult) SufficiencyCheck {
	selected := selectedEvents(result)
	check := SufficiencyCheck{
		Name:      "Events with price reaction",
		Threshold: fmt.Sprintf(">= %.0f%%", c.thresholds.MinPricedShare*100),
	}
	if selected == 0 {
		check.Actual = "0/0 (no classified events)"
		return check
	}
	share := float64(result.EventsAnalyzed) / float64(selected)
	check.Actual = fmt.Sprintf("%.1f%% (%d/%d)", share*100, result.EventsAnalyzed, selected)
	check.Pass = share >= c.thresholds.MinPricedShare
	return check
}

// checkSkipShare: skipped event-horizon pairs over all analyzed pairs.
func (c *SufficiencyChecker) checkSkipShare(result *orchestrator.RunResult) SufficiencyCheck {
	skipped := windowSkips(result.Skips)
	total := skipped + len(result.Reactions)
	check := SufficiencyCheck{
		Name:      "Skipped reactions",
		Threshold: fmt.Sprintf("<= %.0f%%", c.thresholds.MaxSkipShare*100),
	}
	if total == 0 {
		check.Actual = "0/0"
		return check
	}
	share := float64(skipped) / float64(total)
	check.Actual = fmt.Sprintf("%.1f%% (%d/%d)", share*100, skipped, total)
	check.Pass = share <= c.thresholds.MaxSkipShare
	return check
}

// checkSufficientGroups: groups with at least the minimum number of events.
func (c *SufficiencyChecker) checkSufficientGroups(result *orchestrator.RunResult) SufficiencyCheck {
	n := result.SufficientGroups()
	return SufficiencyCheck{
		Name:      "Sufficient groups",
		Threshold: fmt.Sprintf(">= %d", c.thresholds.MinSufficientGroups),
		Actual:    fmt.Sprintf("%d/%d", n, len(result.Stats)),
		Pass:      n >= c.thresholds.MinSufficientGroups,
	}
}

// selectedEvents counts events that passed classification and the country filter.
func selectedEvents(result *orchestrator.RunResult) int {
	n := result.EventsLoaded -
		result.Skips.Counts[orchestrator.SkipUnclassified] -
		result.Skips.Counts[orchestrator.SkipCountryFiltered]
	return max(n, 0)
}

// windowSkips counts skips recorded per event-horizon pair.
func windowSkips(skips orchestrator.SkipReport) int {
	n := 0
	for reason, count := range skips.Counts {
		if reason == orchestrator.SkipUnclassified || reason == orchestrator.SkipCountryFiltered {
			continue
		}
		n += count
	}
	return n
}

func formatDay(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

// convertToDataQuality converts SufficiencyResult to reporting.DataQualitySection.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	checks := make([]reporting.SufficiencyCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: checks,
		IntegrityErrors:   result.Errors,
		AllChecksPassed:   result.AllPass,
	}
}
