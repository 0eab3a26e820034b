// Package app wires the configured stores, cache, publisher and engine
// components shared by the commands.
package app

import (
	"context"
	"fmt"
	"time"

	"fx-impact-lab/internal/cache"
	"fx-impact-lab/internal/classifier"
	"fx-impact-lab/internal/combiner"
	"fx-impact-lab/internal/config"
	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/observability"
	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/planner"
	"fx-impact-lab/internal/publish"
	"fx-impact-lab/internal/reaction"
	"fx-impact-lab/internal/scoring"
	"fx-impact-lab/internal/storage"
	chstore "fx-impact-lab/internal/storage/clickhouse"
	"fx-impact-lab/internal/storage/memory"
	"fx-impact-lab/internal/storage/migrations"
	pgstore "fx-impact-lab/internal/storage/postgres"
)

// Stores holds every storage implementation used by the engine.
type Stores struct {
	Events    storage.EventStore
	Prices    storage.PriceSampleStore
	Reactions storage.ReactionStore
	Stats     storage.FamilyStatsStore
	Scores    storage.ScoreStore

	closers []func()
}

// Close releases database connections.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// NewMemoryStores creates empty in-memory stores.
func NewMemoryStores() *Stores {
	return &Stores{
		Events:    memory.NewEventStore(),
		Prices:    memory.NewPriceSampleStore(),
		Reactions: memory.NewReactionStore(),
		Stats:     memory.NewFamilyStatsStore(),
		Scores:    memory.NewScoreStore(),
	}
}

// OpenStores creates the stores of the configured backend.
// Events and scores live in PostgreSQL; prices, reactions and stats in ClickHouse.
func OpenStores(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*Stores, error) {
	if cfg.Backend != "db" {
		return NewMemoryStores(), nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN,
		pgstore.WithMaxConns(cfg.PostgresMaxConns),
		pgstore.WithMaxConnLifetime(cfg.PostgresMaxConnLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	stores := &Stores{closers: []func(){pool.Close}}

	var conn *chstore.Conn
	if cfg.RunMigrations {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN, cfg.ClickHouseDatabase)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		log.Info("migrations applied", logger.Strings("postgres", applied))
	} else {
		var chOpts []chstore.ConnOption
		if cfg.ClickHouseDatabase != "" {
			chOpts = append(chOpts, chstore.WithDatabase(cfg.ClickHouseDatabase))
		}
		conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN, chOpts...)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
	}
	stores.closers = append(stores.closers, func() { _ = conn.Close() })

	stores.Events = pgstore.NewEventStore(pool)
	stores.Scores = pgstore.NewScoreStore(pool)
	stores.Prices = chstore.NewPriceSampleStore(conn)
	stores.Reactions = chstore.NewReactionStore(conn)
	stores.Stats = chstore.NewFamilyStatsStore(conn)
	return stores, nil
}

// OpenCache creates the configured cache backend.
func OpenCache(ctx context.Context, cfg config.CacheConfig) (cache.Service, error) {
	switch cfg.Backend {
	case "redis":
		c, err := cache.NewRedisCache(ctx,
			cache.WithRedisAddr(cfg.RedisAddr),
			cache.WithRedisPassword(cfg.RedisPassword),
			cache.WithRedisDB(cfg.RedisDB),
			cache.WithRedisPrefix(cfg.KeyPrefix),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return c, nil
	case "memory":
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.MaxSize),
			cache.WithMemoryCleanup(cfg.CleanupInterval),
		), nil
	default:
		return cache.Nop{}, nil
	}
}

// OpenPublisher creates the Kafka publisher, or a no-op one when disabled.
func OpenPublisher(cfg config.KafkaConfig, metrics *observability.Metrics, log *logger.Logger) (publish.Publisher, error) {
	if !cfg.Enabled {
		return publish.Nop{}, nil
	}
	return publish.NewKafkaPublisher(publish.KafkaConfig{
		Brokers:     cfg.Brokers,
		StatsTopic:  cfg.StatsTopic,
		ScoresTopic: cfg.ScoresTopic,
	}, metrics, log)
}

// NewLogger creates the logger described by cfg.
func NewLogger(cfg config.LogConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		TimeFormat: cfg.TimeFormat,
	})
}

// App is the fully wired engine.
type App struct {
	Config       *config.Config
	Log          *logger.Logger
	Metrics      *observability.Metrics
	Stores       *Stores
	Cache        cache.Service
	Publisher    publish.Publisher
	Classifier   *classifier.Classifier
	Combiner     *combiner.Combiner
	Orchestrator *orchestrator.Orchestrator
	Planner      *planner.Planner
}

// Options overrides parts of the wiring.
type Options struct {
	Stores  *Stores // nil opens the configured backend
	Metrics *observability.Metrics
	Logger  *logger.Logger
	Now     func() time.Time
	RunID   func() string
}

// New wires an App from cfg. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	cls, err := cfg.Classifier()
	if err != nil {
		return nil, err
	}
	analyzer, err := reaction.NewAnalyzer(cfg.ReactionConfig())
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(cfg.ScoringConfig())
	if err != nil {
		return nil, err
	}
	comb, err := combiner.New(cfg.CombinerConfig())
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Log:        log,
		Metrics:    opts.Metrics,
		Stores:     opts.Stores,
		Classifier: cls,
		Combiner:   comb,
	}
	if a.Stores == nil {
		if a.Stores, err = OpenStores(ctx, cfg.Storage, log); err != nil {
			return nil, err
		}
	}
	if a.Cache, err = OpenCache(ctx, cfg.Cache); err != nil {
		a.Close()
		return nil, err
	}
	if a.Publisher, err = OpenPublisher(cfg.Kafka, opts.Metrics, log); err != nil {
		a.Close()
		return nil, err
	}

	a.Orchestrator, err = orchestrator.New(orchestrator.Options{
		EventStore:    a.Stores.Events,
		PriceStore:    a.Stores.Prices,
		ReactionStore: a.Stores.Reactions,
		StatsStore:    a.Stores.Stats,
		ScoreStore:    a.Stores.Scores,
		Classifier:    cls,
		Analyzer:      analyzer,
		Scorer:        scorer,
		Cache:         cache.NewStatsCache(a.Cache, cfg.Cache.TTL),
		Publisher:     a.Publisher,
		Metrics:       opts.Metrics,
		Logger:        log,
		Symbol:        cfg.Engine.Symbol,
		Horizons:      cfg.Engine.Horizons,
		ScoreHorizon:  cfg.Engine.ScoreHorizon,
		LookbackDays:  cfg.Engine.LookbackDays,
		MinEvents:     cfg.Engine.MinEvents,
		Countries:     cfg.Engine.Countries,
		Concurrency:   cfg.Engine.Concurrency,
		Now:           opts.Now,
		NewRunID:      opts.RunID,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Planner = planner.New(a.Orchestrator, cls, comb, cfg.Engine.ScoreHorizon, cfg.Engine.LookbackDays, log)
	return a, nil
}

// Close releases the publisher, cache and stores.
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Log.Warn("close publisher", logger.Err(err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Warn("close cache", logger.Err(err))
		}
	}
	if a.Stores != nil {
		a.Stores.Close()
	}
}
