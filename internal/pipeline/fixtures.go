package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/idhash"
	"fx-impact-lab/internal/storage"
)

// FixtureConfig controls the synthetic data set.
type FixtureConfig struct {
	Symbol        string
	Start         time.Time // first month generated
	Months        int
	WindowMinutes int // minutes of prices after each release
	Seed          int64
}

// DefaultFixtureConfig returns two years of monthly releases for EURUSD.
func DefaultFixtureConfig() FixtureConfig {
	return FixtureConfig{
		Symbol:        "EURUSD",
		Start:         time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Months:        24,
		WindowMinutes: 120,
		Seed:          42,
	}
}

// fixtureTemplate describes one recurring release and the reaction it causes.
type fixtureTemplate struct {
	title      string
	country    string
	currency   string
	eventKey   string
	unit       string
	importance int
	day        int
	hour, min  int
	forecast   float64
	surpriseSD float64
	peakPips   float64
	peakMinute int
	withPrices bool
}

var fixtureTemplates = []fixtureTemplate{
	{title: "Non-Farm Payrolls", country: "US", currency: "USD", eventKey: "nfp", unit: "K", importance: 3,
		day: 5, hour: 12, min: 30, forecast: 180, surpriseSD: 60, peakPips: 35, peakMinute: 6, withPrices: true},
	{title: "CPI YoY", country: "US", currency: "USD", eventKey: "cpi", unit: "%", importance: 3,
		day: 12, hour: 12, min: 30, forecast: 3.2, surpriseSD: 0.2, peakPips: 25, peakMinute: 4, withPrices: true},
	{title: "Retail Sales MoM", country: "US", currency: "USD", eventKey: "retail", unit: "%", importance: 2,
		day: 15, hour: 12, min: 30, forecast: 0.3, surpriseSD: 0.4, peakPips: 12, peakMinute: 8, withPrices: true},
	{title: "Fed Interest Rate Decision", country: "US", currency: "USD", eventKey: "fomc", unit: "%", importance: 3,
		day: 20, hour: 18, min: 0, forecast: 5.25, surpriseSD: 0.1, peakPips: 40, peakMinute: 15, withPrices: true},
	{title: "HCOB Manufacturing PMI", country: "EU", currency: "EUR", eventKey: "pmi", unit: "Index", importance: 2,
		day: 1, hour: 9, min: 0, forecast: 47, surpriseSD: 1.2, peakPips: 8, peakMinute: 5, withPrices: true},
	{title: "GDP Growth Rate QoQ", country: "EU", currency: "EUR", eventKey: "gdp", unit: "%", importance: 3,
		day: 27, hour: 10, min: 0, forecast: 0.1, surpriseSD: 0.1, peakPips: 10, peakMinute: 10, withPrices: true},
	// Never classified
	{title: "Bank Holiday", country: "US", currency: "USD", importance: 1,
		day: 8, hour: 0, min: 0},
	// Classified but without a price feed
	{title: "Consumer Confidence", country: "US", currency: "USD", eventKey: "cc", unit: "Index", importance: 2,
		day: 25, hour: 14, min: 0, forecast: 102, surpriseSD: 3},
}

// GenerateFixtures builds a deterministic set of events and price samples.
// Every priced release gets one-minute closes from five minutes before to
// WindowMinutes after, shaped as a ramp to the template peak followed by a
// partial retracement, in the direction of the surprise.
func GenerateFixtures(cfg FixtureConfig) ([]*domain.Event, []*domain.PriceSample) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	var events []*domain.Event
	var samples []*domain.PriceSample
	for month := 0; month < cfg.Months; month++ {
		base := cfg.Start.AddDate(0, month, 0)
		for _, tpl := range fixtureTemplates {
			at := time.Date(base.Year(), base.Month(), tpl.day, tpl.hour, tpl.min, 0, 0, time.UTC)
			ts := at.UnixMilli()

			event := &domain.Event{
				EventID:     idhash.ComputeEventID(ts, tpl.country, tpl.title),
				TimestampMs: ts,
				Country:     tpl.country,
				Currency:    tpl.currency,
				Title:       tpl.title,
				EventKey:    tpl.eventKey,
				Importance:  tpl.importance,
				Unit:        tpl.unit,
			}

			surprise := 0.0
			if tpl.surpriseSD > 0 {
				surprise = rng.NormFloat64() * tpl.surpriseSD
				if surprise == 0 {
					surprise = tpl.surpriseSD / 10
				}
				forecast := tpl.forecast
				actual := round(tpl.forecast+surprise, 2)
				previous := round(tpl.forecast+rng.NormFloat64()*tpl.surpriseSD, 2)
				event.Forecast = &forecast
				event.Actual = &actual
				event.Previous = &previous
				surprise = actual - forecast
			}
			events = append(events, event)

			if !tpl.withPrices {
				continue
			}
			samples = append(samples, fixturePrices(cfg, rng, ts, tpl, surprise, month)...)
		}
	}
	return events, samples
}

func fixturePrices(cfg FixtureConfig, rng *rand.Rand, ts int64, tpl fixtureTemplate, surprise float64, month int) []*domain.PriceSample {
	const pip = 0.0001
	dir := 1.0
	if surprise < 0 {
		dir = -1
	}
	// USD strength pushes EURUSD down
	if tpl.currency == "USD" {
		dir = -dir
	}

	entry := 1.08 + float64(month%7)*0.002
	// Peak scales with the surprise size, clamped to [0.5, 1.5] of the template peak
	scale := math.Min(1.5, math.Max(0.5, math.Abs(surprise)/tpl.surpriseSD))
	peak := tpl.peakPips * scale

	samples := make([]*domain.PriceSample, 0, cfg.WindowMinutes+6)
	for m := -5; m <= cfg.WindowMinutes; m++ {
		var excursion float64
		switch {
		case m <= 0:
			excursion = 0
		case m <= tpl.peakMinute:
			excursion = peak * float64(m) / float64(tpl.peakMinute)
		default:
			// Retrace towards 30% of the peak by the end of the window
			progress := float64(m-tpl.peakMinute) / float64(cfg.WindowMinutes-tpl.peakMinute)
			excursion = peak * (1 - 0.7*progress)
		}
		noise := 0.0
		if m > 0 && m != tpl.peakMinute {
			noise = (rng.Float64() - 0.5) * 0.6
		}
		samples = append(samples, &domain.PriceSample{
			Symbol:      cfg.Symbol,
			TimestampMs: ts + int64(m)*domain.MillisPerMinute,
			Close:       round(entry+dir*(excursion+noise)*pip, 5),
		})
	}
	return samples
}

// LoadFixtures generates fixtures and populates the stores.
// Returns the number of events and samples inserted.
func LoadFixtures(
	ctx context.Context,
	eventStore storage.EventStore,
	priceStore storage.PriceSampleStore,
	cfg FixtureConfig,
) (int, int, error) {
	events, samples := GenerateFixtures(cfg)

	if err := eventStore.InsertBulk(ctx, events); err != nil {
		return 0, 0, fmt.Errorf("load fixture events: %w", err)
	}
	if err := priceStore.InsertBulk(ctx, samples); err != nil {
		return 0, 0, fmt.Errorf("load fixture prices: %w", err)
	}
	return len(events), len(samples), nil
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
