// Package reaction computes the price reaction of a single event over one horizon.
package reaction

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/lookup"
)

// Errors returned by the analyzer.
var (
	ErrDegenerateWindow = errors.New("degenerate reaction window")
	ErrInvalidEntry     = errors.New("invalid entry price")
	ErrInvalidConfig    = errors.New("invalid reaction config")
)

// Config holds the reaction parameters.
type Config struct {
	PipFactor        float64 // price units to pips, 10000 for 4-decimal quotes
	ThresholdPips    float64 // reaction threshold for latency
	ReversalFraction float64 // TTR retrace level as a fraction of MFE
	RequireSignFlip  bool    // TTR additionally requires the excursion to change sign
	MinWindowSamples int     // minimum samples in (event, event+horizon]
}

// DefaultConfig returns the default reaction parameters.
func DefaultConfig() Config {
	return Config{
		PipFactor:        10000,
		ThresholdPips:    5,
		ReversalFraction: 0.5,
		RequireSignFlip:  false,
		MinWindowSamples: lookup.DefaultMinWindowSamples,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.PipFactor <= 0 {
		return fmt.Errorf("%w: pip factor must be positive", ErrInvalidConfig)
	}
	if c.ThresholdPips <= 0 {
		return fmt.Errorf("%w: threshold must be positive", ErrInvalidConfig)
	}
	if c.ReversalFraction <= 0 || c.ReversalFraction > 1 {
		return fmt.Errorf("%w: reversal fraction must be in (0,1]", ErrInvalidConfig)
	}
	if c.MinWindowSamples < 1 {
		return fmt.Errorf("%w: min window samples must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Analyzer computes ReactionMetrics. Stateless after construction.
type Analyzer struct {
	cfg       Config
	pipFactor decimal.Decimal
}

// NewAnalyzer validates cfg and returns an Analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		cfg:       cfg,
		pipFactor: decimal.NewFromFloat(cfg.PipFactor),
	}, nil
}

// Config returns the analyzer parameters.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Analyze computes the reaction for one event.
// window holds the post-event samples in ascending order, eventTs is the
// release time and entry the anchor close. Offsets are minutes from eventTs.
//
// Invariants: 0 <= latency <= horizon, 0 <= ttr <= horizon, mfe >= 0.
func (a *Analyzer) Analyze(eventTs int64, entry float64, window []*domain.PriceSample, horizonMinutes int) (*domain.ReactionMetrics, error) {
	if len(window) == 0 || horizonMinutes <= 0 {
		return nil, ErrDegenerateWindow
	}
	if entry <= 0 || math.IsNaN(entry) || math.IsInf(entry, 0) {
		return nil, ErrInvalidEntry
	}

	horizon := float64(horizonMinutes)
	entryDec := decimal.NewFromFloat(entry)

	n := len(window)
	offsets := make([]float64, n)
	excursions := make([]float64, n)
	for i, s := range window {
		offsets[i] = clamp(domain.MinutesBetween(eventTs, s.TimestampMs), 0, horizon)
		excursions[i], _ = decimal.NewFromFloat(s.Close).Sub(entryDec).Mul(a.pipFactor).Float64()
	}

	m := &domain.ReactionMetrics{
		EventTimeMs:    eventTs,
		HorizonMinutes: horizonMinutes,
		EntryPrice:     entry,
		LatencyMinutes: horizon,
		SampleCount:    n,
	}

	// Latency: first crossing of the threshold
	for i, exc := range excursions {
		if math.Abs(exc) >= a.cfg.ThresholdPips {
			m.LatencyMinutes = offsets[i]
			m.Reacted = true
			break
		}
	}

	// Peak: first sample reaching max |excursion|, so equal up/down
	// magnitudes resolve to whichever came first.
	peak := 0
	for i := 1; i < n; i++ {
		if math.Abs(excursions[i]) > math.Abs(excursions[peak]) {
			peak = i
		}
	}
	m.MFEPips = math.Abs(excursions[peak])
	m.PeakTimeMinutes = offsets[peak]
	m.Direction = domain.DirectionUp
	if excursions[peak] < 0 {
		m.Direction = domain.DirectionDown
	}

	m.TTRMinutes = a.timeToReversal(offsets, excursions, peak, m.Direction, horizon)

	return m, nil
}

// timeToReversal returns minutes from peak to the first later sample whose
// |excursion| is at most ReversalFraction*MFE (and, when RequireSignFlip is
// set, whose sign is opposite to the peak). Saturates at horizon - peak.
func (a *Analyzer) timeToReversal(offsets, excursions []float64, peak int, dir domain.Direction, horizon float64) float64 {
	level := a.cfg.ReversalFraction * math.Abs(excursions[peak])

	for i := peak + 1; i < len(excursions); i++ {
		exc := excursions[i]
		if math.Abs(exc) > level {
			continue
		}
		if a.cfg.RequireSignFlip && exc*float64(dir) >= 0 {
			continue
		}
		return clamp(offsets[i]-offsets[peak], 0, horizon)
	}

	return clamp(horizon-offsets[peak], 0, horizon)
}

// AnalyzeEvent resolves the anchor and window from an ascending price feed
// and analyzes the event. Returns lookup.ErrMissingAnchor,
// lookup.ErrInsufficientWindow or ErrDegenerateWindow for skipped events.
func (a *Analyzer) AnalyzeEvent(event *domain.Event, feed []*domain.PriceSample, horizonMinutes int) (*domain.ReactionMetrics, error) {
	if horizonMinutes <= 0 {
		return nil, ErrDegenerateWindow
	}

	anchor, err := lookup.AnchorAt(event.TimestampMs, feed)
	if err != nil {
		if errors.Is(err, lookup.ErrNoPriceData) {
			return nil, lookup.ErrMissingAnchor
		}
		return nil, err
	}

	window, err := lookup.Window(event.TimestampMs, horizonMinutes, feed, a.cfg.MinWindowSamples)
	if err != nil {
		return nil, err
	}

	m, err := a.Analyze(event.TimestampMs, anchor.Close, window, horizonMinutes)
	if err != nil {
		return nil, err
	}

	m.EventID = event.EventID
	m.Family = event.Family
	m.Country = event.Country
	return m, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
