// Package orchestrator runs the engine end to end.
// It coordinates: classification → reaction analysis → aggregation → scoring → persistence
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fx-impact-lab/internal/cache"
	"fx-impact-lab/internal/classifier"
	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/idhash"
	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/metrics"
	"fx-impact-lab/internal/observability"
	"fx-impact-lab/internal/publish"
	"fx-impact-lab/internal/reaction"
	"fx-impact-lab/internal/scoring"
	"fx-impact-lab/internal/storage"
)

// rollingWindowSlack is how far a run's end may lie from the clock for the
// run to still count as the rolling lookback window.
const rollingWindowSlack = time.Minute

// Errors returned by the orchestrator.
var (
	ErrInvalidOptions = errors.New("invalid orchestrator options")
	ErrNoReactionData = errors.New("reaction store not configured")
	ErrRunInProgress  = errors.New("a run is already in progress")
)

// Orchestrator coordinates the engine run.
type Orchestrator struct {
	// Stores
	eventStore    storage.EventStore
	priceStore    storage.PriceSampleStore
	reactionStore storage.ReactionStore
	statsStore    storage.FamilyStatsStore
	scoreStore    storage.ScoreStore

	// Engine
	classifier *classifier.Classifier
	analyzer   *reaction.Analyzer
	aggregator *metrics.Aggregator
	scorer     *scoring.Scorer

	// Side channels
	cache     *cache.StatsCache
	publisher publish.Publisher
	metrics   *observability.Metrics
	log       *logger.Logger

	symbol       string
	horizons     []int
	maxHorizon   int
	scoreHorizon int
	lookbackDays int
	countries    map[string]struct{}
	concurrency  int
	paramsHash   string

	now      func() time.Time
	newRunID func() string
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	EventStore storage.EventStore
	PriceStore storage.PriceSampleStore

	// Optional stores; nil skips persistence of that record type
	ReactionStore storage.ReactionStore
	StatsStore    storage.FamilyStatsStore
	ScoreStore    storage.ScoreStore

	// Required engine components
	Classifier *classifier.Classifier
	Analyzer   *reaction.Analyzer
	Scorer     *scoring.Scorer

	// Optional
	Cache     *cache.StatsCache
	Publisher publish.Publisher
	Metrics   *observability.Metrics
	Logger    *logger.Logger

	Symbol       string
	Horizons     []int
	ScoreHorizon int
	LookbackDays int
	MinEvents    int
	Countries    []string // empty keeps every country
	Concurrency  int

	Now      func() time.Time
	NewRunID func() string
}

// New validates opts and creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.EventStore == nil || opts.PriceStore == nil:
		return nil, fmt.Errorf("%w: event and price stores are required", ErrInvalidOptions)
	case opts.Classifier == nil || opts.Analyzer == nil || opts.Scorer == nil:
		return nil, fmt.Errorf("%w: classifier, analyzer and scorer are required", ErrInvalidOptions)
	case opts.Symbol == "":
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidOptions)
	case len(opts.Horizons) == 0:
		return nil, fmt.Errorf("%w: at least one horizon is required", ErrInvalidOptions)
	case opts.LookbackDays <= 0:
		return nil, fmt.Errorf("%w: lookback days must be positive", ErrInvalidOptions)
	}

	maxHorizon := 0
	for _, h := range opts.Horizons {
		if h <= 0 {
			return nil, fmt.Errorf("%w: horizons must be positive", ErrInvalidOptions)
		}
		if h > maxHorizon {
			maxHorizon = h
		}
	}

	scoreHorizon := opts.ScoreHorizon
	if scoreHorizon == 0 {
		scoreHorizon = opts.Horizons[0]
	}
	minEvents := opts.MinEvents
	if minEvents <= 0 {
		minEvents = metrics.DefaultMinEvents
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	rc := opts.Analyzer.Config()
	paramsHash := idhash.ComputeParamsHash(
		rc.PipFactor, rc.ThresholdPips, rc.ReversalFraction, rc.RequireSignFlip, rc.MinWindowSamples, minEvents,
	)

	var countries map[string]struct{}
	if len(opts.Countries) > 0 {
		countries = make(map[string]struct{}, len(opts.Countries))
		for _, c := range opts.Countries {
			countries[c] = struct{}{}
		}
	}

	o := &Orchestrator{
		eventStore:    opts.EventStore,
		priceStore:    opts.PriceStore,
		reactionStore: opts.ReactionStore,
		statsStore:    opts.StatsStore,
		scoreStore:    opts.ScoreStore,
		classifier:    opts.Classifier,
		analyzer:      opts.Analyzer,
		aggregator:    metrics.NewAggregator(minEvents, opts.LookbackDays, paramsHash),
		scorer:        opts.Scorer,
		cache:         opts.Cache,
		publisher:     opts.Publisher,
		metrics:       opts.Metrics,
		log:           opts.Logger,
		symbol:        opts.Symbol,
		horizons:      append([]int(nil), opts.Horizons...),
		maxHorizon:    maxHorizon,
		scoreHorizon:  scoreHorizon,
		lookbackDays:  opts.LookbackDays,
		countries:     countries,
		concurrency:   concurrency,
		paramsHash:    paramsHash,
		now:           opts.Now,
		newRunID:      opts.NewRunID,
	}
	if o.cache == nil {
		o.cache = cache.NewStatsCache(nil, 0)
	}
	if o.publisher == nil {
		o.publisher = publish.Nop{}
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	o.log = o.log.With(logger.String("component", "orchestrator"))
	if o.now == nil {
		o.now = time.Now
	}
	if o.newRunID == nil {
		o.newRunID = func() string { return uuid.NewString() }
	}
	return o, nil
}

// ParamsHash returns the hash of the reaction parameters of this engine.
func (o *Orchestrator) ParamsHash() string {
	return o.paramsHash
}

// RunRequest bounds the events analyzed by a run.
type RunRequest struct {
	Start time.Time // zero means End minus the lookback
	End   time.Time // zero means now
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID      string
	ParamsHash string
	Symbol     string
	Start      time.Time
	End        time.Time
	StartedAt  time.Time
	Duration   time.Duration

	EventsLoaded   int
	EventsAnalyzed int // events with at least one reaction

	PriceMinTs int64 // feed coverage, zero when empty
	PriceMaxTs int64

	Reactions []*domain.ReactionMetrics // sorted by event time, event_id, horizon
	Stats     []*domain.FamilyStats     // sorted by key
	Scores    []*domain.Score           // ranked
	Skips     SkipReport
}

// SufficientGroups returns the number of stats groups with enough events.
func (r *RunResult) SufficientGroups() int {
	n := 0
	for _, s := range r.Stats {
		if s.Sufficient {
			n++
		}
	}
	return n
}

// Run executes the full engine.
// Phases:
//  1. Load and classify events
//  2. Analyze each event at every horizon
//  3. Aggregate reactions per group
//  4. Score groups at the score horizon
//  5. Persist and publish
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	startedAt := o.now()
	end := req.End
	if end.IsZero() {
		end = startedAt
	}
	start := req.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -o.lookbackDays)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrInvalidOptions, start, end)
	}

	result := &RunResult{
		RunID:      o.newRunID(),
		ParamsHash: o.paramsHash,
		Symbol:     o.symbol,
		Start:      start,
		End:        end,
		StartedAt:  startedAt,
		Skips:      NewSkipReport(),
	}
	log := o.log.With(logger.String("run_id", result.RunID))
	log.Info("run started",
		logger.String("start", start.UTC().Format(time.RFC3339)),
		logger.String("end", end.UTC().Format(time.RFC3339)),
		logger.String("params_hash", o.paramsHash),
	)

	status := "failure"
	defer func() {
		o.metrics.RecordRun(status, o.now())
	}()

	// Phase 1: Load events
	phaseStart := o.now()
	events, err := o.eventStore.GetByTimeRange(ctx, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load events) failed: %w", err)
	}
	result.EventsLoaded = len(events)
	o.metrics.RecordEventsLoaded(len(events))

	result.PriceMinTs, result.PriceMaxTs, err = o.priceStore.GetTimeRange(ctx, o.symbol)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (price coverage) failed: %w", err)
	}

	events = o.selectEvents(events, &result.Skips)
	o.metrics.RecordPhase("load", o.now().Sub(phaseStart))
	log.Info("events loaded",
		logger.Int("loaded", result.EventsLoaded),
		logger.Int("selected", len(events)),
	)

	// Phase 2: Reactions
	phaseStart = o.now()
	reactions, skips, analyzed, err := o.analyzeEvents(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (reactions) failed: %w", err)
	}
	result.Reactions = reactions
	result.EventsAnalyzed = analyzed
	result.Skips.Merge(skips)
	o.metrics.RecordPhase("reactions", o.now().Sub(phaseStart))
	log.Info("reactions computed",
		logger.Int("reactions", len(reactions)),
		logger.Int("skipped", result.Skips.Total()),
	)
	for _, sc := range result.Skips.Sorted() {
		log.Debug("events skipped", logger.String("reason", string(sc.Reason)), logger.Int("count", sc.Count))
	}

	// Phase 3: Aggregation
	phaseStart = o.now()
	result.Stats, err = o.aggregate(ctx, reactions, o.isRollingWindow(start, end, startedAt))
	if err != nil {
		return nil, fmt.Errorf("phase 3 (aggregation) failed: %w", err)
	}
	o.metrics.RecordPhase("aggregate", o.now().Sub(phaseStart))
	log.Info("groups aggregated", logger.Int("groups", len(result.Stats)), logger.Int("sufficient", result.SufficientGroups()))

	// Phase 4: Scoring
	result.Scores = o.score(result.Stats)
	o.metrics.RecordScores(len(result.Scores))

	// Phase 5: Persistence and publishing
	phaseStart = o.now()
	if err := o.persist(ctx, result); err != nil {
		return nil, fmt.Errorf("phase 5 (persist) failed: %w", err)
	}
	o.metrics.RecordPhase("persist", o.now().Sub(phaseStart))

	result.Duration = o.now().Sub(startedAt)
	status = "success"
	log.Info("run completed",
		logger.Int("events", result.EventsLoaded),
		logger.Int("reactions", len(result.Reactions)),
		logger.Int("groups", len(result.Stats)),
		logger.Int("scores", len(result.Scores)),
		logger.Duration("duration", result.Duration),
	)
	return result, nil
}

// selectEvents classifies events and applies the country filter.
// Returned events carry their family; the inputs are not mutated.
func (o *Orchestrator) selectEvents(events []*domain.Event, skips *SkipReport) []*domain.Event {
	selected := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if o.countries != nil {
			if _, ok := o.countries[e.Country]; !ok {
				skips.Add(SkipCountryFiltered)
				o.metrics.RecordSkip(string(SkipCountryFiltered))
				continue
			}
		}
		family, ok := o.classifier.ClassifyEvent(e)
		if !ok {
			skips.Add(SkipUnclassified)
			o.metrics.RecordSkip(string(SkipUnclassified))
			continue
		}
		classified := *e
		classified.Family = family
		selected = append(selected, &classified)
	}
	return selected
}

type eventOutcome struct {
	reactions []*domain.ReactionMetrics
	skips     SkipReport
}

// analyzeEvents analyzes events concurrently. Output order follows the input order.
func (o *Orchestrator) analyzeEvents(ctx context.Context, events []*domain.Event) ([]*domain.ReactionMetrics, SkipReport, int, error) {
	outcomes := make([]eventOutcome, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, e := range events {
		g.Go(func() error {
			out, err := o.analyzeEvent(gctx, e)
			if err != nil {
				return fmt.Errorf("event %s: %w", e.EventID, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, SkipReport{}, 0, err
	}

	var reactions []*domain.ReactionMetrics
	skips := NewSkipReport()
	analyzed := 0
	for _, out := range outcomes {
		if len(out.reactions) > 0 {
			analyzed++
		}
		reactions = append(reactions, out.reactions...)
		skips.Merge(out.skips)
	}
	return reactions, skips, analyzed, nil
}

// analyzeEvent fetches the anchor and the longest window once and analyzes every horizon.
func (o *Orchestrator) analyzeEvent(ctx context.Context, e *domain.Event) (eventOutcome, error) {
	out := eventOutcome{skips: NewSkipReport()}

	feed, err := o.loadFeed(ctx, e.TimestampMs)
	if err != nil {
		return out, err
	}

	for _, h := range o.horizons {
		m, err := o.analyzer.AnalyzeEvent(e, feed, h)
		if err != nil {
			reason, ok := skipReasonFor(err)
			if !ok {
				return out, err
			}
			out.skips.Add(reason)
			o.metrics.RecordSkip(string(reason))
			continue
		}
		out.reactions = append(out.reactions, m)
		o.metrics.RecordReaction(strconv.Itoa(h))
	}
	return out, nil
}

// loadFeed returns the anchor (when present) followed by the samples in
// (eventTs, eventTs+maxHorizon].
func (o *Orchestrator) loadFeed(ctx context.Context, eventTs int64) ([]*domain.PriceSample, error) {
	var feed []*domain.PriceSample

	anchor, err := o.priceStore.GetLatestAtOrBefore(ctx, o.symbol, eventTs)
	switch {
	case err == nil:
		feed = append(feed, anchor)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("load anchor: %w", err)
	}

	end := eventTs + int64(o.maxHorizon)*domain.MillisPerMinute
	window, err := o.priceStore.GetByTimeRange(ctx, o.symbol, eventTs+1, end)
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	return append(feed, window...), nil
}

// isRollingWindow reports whether [start, end] is the default lookback ending
// now. Only such runs describe the groups ComputeGroup serves.
func (o *Orchestrator) isRollingWindow(start, end, now time.Time) bool {
	if !start.Equal(end.AddDate(0, 0, -o.lookbackDays)) {
		return false
	}
	d := end.Sub(now)
	return d <= rollingWindowSlack && d >= -rollingWindowSlack
}

// aggregate computes every group concurrently. With cacheable set the
// results also populate the cache.
// Results are sorted by key regardless of completion order.
func (o *Orchestrator) aggregate(ctx context.Context, reactions []*domain.ReactionMetrics, cacheable bool) ([]*domain.FamilyStats, error) {
	groups := o.aggregator.GroupReactions(reactions)
	keys := metrics.SortedKeys(groups)
	stats := make([]*domain.FamilyStats, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			s := o.aggregator.Compute(key, groups[key])
			stats[i] = s
			o.metrics.RecordGroup(s.Sufficient)
			if !cacheable {
				return nil
			}
			if err := o.cache.Put(gctx, s); err != nil {
				o.log.Warn("cache put failed", logger.String("group", key.String()), logger.Err(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// score rates every group at the score horizon and ranks the result.
func (o *Orchestrator) score(stats []*domain.FamilyStats) []*domain.Score {
	var scores []*domain.Score
	for _, s := range stats {
		if s.HorizonMinutes != o.scoreHorizon {
			continue
		}
		tier := domain.ImportanceTier(o.classifier.Importance(s.Family))
		scores = append(scores, o.scorer.Score(s, tier))
	}
	scoring.Rank(scores)
	return scores
}

func (o *Orchestrator) persist(ctx context.Context, result *RunResult) error {
	if o.reactionStore != nil && len(result.Reactions) > 0 {
		if err := o.reactionStore.Upsert(ctx, o.paramsHash, result.Reactions); err != nil {
			return fmt.Errorf("store reactions: %w", err)
		}
	}
	if o.statsStore != nil && len(result.Stats) > 0 {
		if err := o.statsStore.Upsert(ctx, result.Stats); err != nil {
			return fmt.Errorf("store stats: %w", err)
		}
	}
	if o.scoreStore != nil && len(result.Scores) > 0 {
		if err := o.scoreStore.Upsert(ctx, result.Scores); err != nil {
			return fmt.Errorf("store scores: %w", err)
		}
	}

	if err := o.publisher.PublishStats(ctx, result.RunID, result.Stats); err != nil {
		return err
	}
	return o.publisher.PublishScores(ctx, result.RunID, result.Scores)
}

// ComputeGroup returns the statistics of one group, from the cache when
// possible, otherwise recomputed from stored reactions within the lookback
// ending now.
func (o *Orchestrator) ComputeGroup(ctx context.Context, key domain.StatsKey) (*domain.FamilyStats, error) {
	if key.LookbackDays == 0 {
		key.LookbackDays = o.lookbackDays
	}

	cached, err := o.cache.Get(ctx, key, o.paramsHash)
	if err == nil {
		o.metrics.RecordCache(true)
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		o.log.Warn("cache get failed", logger.String("group", key.String()), logger.Err(err))
	}
	o.metrics.RecordCache(false)

	if o.reactionStore == nil {
		return nil, ErrNoReactionData
	}

	stored, err := o.reactionStore.GetByFamily(ctx, o.paramsHash, key.Family, key.HorizonMinutes)
	if err != nil {
		return nil, fmt.Errorf("load reactions: %w", err)
	}

	cutoff := o.now().AddDate(0, 0, -key.LookbackDays).UnixMilli()
	selected := make([]*domain.ReactionMetrics, 0, len(stored))
	for _, r := range stored {
		if r.EventTimeMs < cutoff {
			continue
		}
		if key.Country != "" && r.Country != key.Country {
			continue
		}
		selected = append(selected, r)
	}

	stats := metrics.ComputeFamilyStats(key, selected, o.aggregator.MinEvents())
	stats.ParamsHash = o.paramsHash
	if err := o.cache.Put(ctx, stats); err != nil {
		o.log.Warn("cache put failed", logger.String("group", key.String()), logger.Err(err))
	}
	return stats, nil
}

// ScoreGroup computes the group statistics and scores them.
func (o *Orchestrator) ScoreGroup(ctx context.Context, key domain.StatsKey) (*domain.FamilyStats, *domain.Score, error) {
	stats, err := o.ComputeGroup(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	tier := domain.ImportanceTier(o.classifier.Importance(key.Family))
	return stats, o.scorer.Score(stats, tier), nil
}
