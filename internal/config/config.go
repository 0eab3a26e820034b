// Package config loads the engine configuration from defaults, an optional
// YAML file, an optional .env file and FXIMPACT_* environment variables,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "FXIMPACT"

// Config is the complete application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Combiner CombinerConfig `yaml:"combiner"`
	Families []FamilyConfig `yaml:"families" validate:"dive"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Server   ServerConfig   `yaml:"server"`
	Export   ExportConfig   `yaml:"export"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout" validate:"required"`
	TimeFormat string `yaml:"time_format" default:"2006-01-02T15:04:05.000Z07:00"`
}

// EngineConfig holds reaction and aggregation parameters.
type EngineConfig struct {
	Symbol           string   `yaml:"symbol" default:"EURUSD" validate:"required"`
	PipFactor        float64  `yaml:"pip_factor" default:"10000" validate:"gt=0"`
	ThresholdPips    float64  `yaml:"threshold_pips" default:"5" validate:"gt=0"`
	ReversalFraction float64  `yaml:"reversal_fraction" default:"0.5" validate:"gt=0,lte=1"`
	RequireSignFlip  bool     `yaml:"require_sign_flip"`
	MinWindowSamples int      `yaml:"min_window_samples" default:"3" validate:"min=1"`
	Horizons         []int    `yaml:"horizons" default:"[15,30,60]" validate:"min=1,unique,dive,gt=0"`
	ScoreHorizon     int      `yaml:"score_horizon" default:"30" validate:"gt=0"`
	LookbackDays     int      `yaml:"lookback_days" default:"1095" validate:"gt=0"`
	Countries        []string `yaml:"countries"` // empty means all
	MinEvents        int      `yaml:"min_events" default:"5" validate:"min=1"`
	FallbackFamily   string   `yaml:"fallback_family"`
	Concurrency      int      `yaml:"concurrency" default:"4" validate:"min=1"`
}

// ScoringConfig holds scorer weights, curves and thresholds.
type ScoringConfig struct {
	WeightImpact      float64 `yaml:"weight_impact" default:"0.4"`
	WeightPersistence float64 `yaml:"weight_persistence" default:"0.3"`
	WeightReliability float64 `yaml:"weight_reliability" default:"0.2"`
	WeightImportance  float64 `yaml:"weight_importance" default:"0.1"`

	ImpactMidpointPips float64 `yaml:"impact_midpoint_pips" default:"50"`
	ImpactSteepness    float64 `yaml:"impact_steepness" default:"0.05"`

	LatencyOptimalMinutes float64 `yaml:"latency_optimal_minutes" default:"5"`
	LatencySlowMinutes    float64 `yaml:"latency_slow_minutes" default:"60"`
	LatencyFloor          float64 `yaml:"latency_floor" default:"0.2"`

	TTROptimalMinutes float64 `yaml:"ttr_optimal_minutes" default:"60"`
	TTRMinMinutes     float64 `yaml:"ttr_min_minutes" default:"15"`
	TTRFloor          float64 `yaml:"ttr_floor" default:"0.3"`

	MinReliableN  int     `yaml:"min_reliable_n" default:"10"`
	TargetN       int     `yaml:"target_n" default:"20"`
	PartialCredit float64 `yaml:"partial_credit" default:"0.5"`

	ConvictionThreshold float64 `yaml:"conviction_threshold" default:"0.6"`
	ConvictionPenalty   float64 `yaml:"conviction_penalty" default:"0.85"`

	Grades      []GradeConfig     `yaml:"grades"` // empty means the default table
	Tradability TradabilityConfig `yaml:"tradability"`
}

// GradeConfig is one row of the grade table.
type GradeConfig struct {
	Grade    string  `yaml:"grade" validate:"required"`
	MinScore float64 `yaml:"min_score"`
}

// TradabilityConfig holds the tradability table thresholds.
type TradabilityConfig struct {
	ExcellentMinScore      float64 `yaml:"excellent_min_score" default:"75"`
	ExcellentMinImpactPips float64 `yaml:"excellent_min_impact_pips" default:"15"`
	ExcellentMinConviction float64 `yaml:"excellent_min_conviction" default:"0.65"`
	ExcellentMinTTR        float64 `yaml:"excellent_min_ttr" default:"20"`
	ExcellentMinN          int     `yaml:"excellent_min_n" default:"5"`
	GoodMinScore           float64 `yaml:"good_min_score" default:"60"`
	FairMinScore           float64 `yaml:"fair_min_score" default:"45"`
	PoorMinScore           float64 `yaml:"poor_min_score" default:"30"`
}

// CombinerConfig holds multi-event planning parameters.
type CombinerConfig struct {
	EntryLeadMinutes         float64       `yaml:"entry_lead_minutes" default:"2"`
	StrongInteractionMinutes float64       `yaml:"strong_interaction_minutes" default:"120"`
	HighOverlapMinutes       float64       `yaml:"high_overlap_minutes" default:"15"`
	MediumOverlapMinutes     float64       `yaml:"medium_overlap_minutes" default:"5"`
	SurpriseScale            float64       `yaml:"surprise_scale" default:"50"`
	MaxSurpriseFactor        float64       `yaml:"max_surprise_factor" default:"2"`
	ScenarioDeltas           []float64     `yaml:"scenario_deltas" default:"[-2,-1,0,1,2]"`
	Session                  SessionConfig `yaml:"session"`
}

// SessionConfig holds the session tradability heuristic.
type SessionConfig struct {
	BaseScore          float64 `yaml:"base_score" default:"50"`
	CountBonusPerEvent float64 `yaml:"count_bonus_per_event" default:"5"`
	MaxCountEvents     int     `yaml:"max_count_events" default:"3"`
	CoherenceBonus     float64 `yaml:"coherence_bonus" default:"20"`
	LargeImpactPips    float64 `yaml:"large_impact_pips" default:"30"`
	LargeImpactBonus   float64 `yaml:"large_impact_bonus" default:"15"`
	MediumImpactPips   float64 `yaml:"medium_impact_pips" default:"15"`
	MediumImpactBonus  float64 `yaml:"medium_impact_bonus" default:"8"`
	HighOverlapPenalty float64 `yaml:"high_overlap_penalty" default:"10"`
	CompactSpanMinutes float64 `yaml:"compact_span_minutes" default:"120"`
	CompactSpanBonus   float64 `yaml:"compact_span_bonus" default:"10"`
	WideSpanMinutes    float64 `yaml:"wide_span_minutes" default:"360"`
	WideSpanPenalty    float64 `yaml:"wide_span_penalty" default:"10"`
	ExcellentMinScore  float64 `yaml:"excellent_min_score" default:"75"`
	FairMinScore       float64 `yaml:"fair_min_score" default:"50"`
}

// FamilyConfig is one row of a custom family table.
type FamilyConfig struct {
	Family      string  `yaml:"family" validate:"required"`
	Pattern     string  `yaml:"pattern" validate:"required"`
	Importance  int     `yaml:"importance" validate:"min=1,max=3"`
	Sensitivity float64 `yaml:"sensitivity"`
	Unit        string  `yaml:"unit"`
	Description string  `yaml:"description"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend                 string        `yaml:"backend" default:"memory" validate:"oneof=memory db"`
	PostgresDSN             string        `yaml:"postgres_dsn" validate:"required_if=Backend db"`
	PostgresMaxConns        int32         `yaml:"postgres_max_conns" default:"10" validate:"min=0"`
	PostgresMaxConnLifetime time.Duration `yaml:"postgres_max_conn_lifetime" default:"1h"`
	ClickHouseDSN           string        `yaml:"clickhouse_dsn" validate:"required_if=Backend db"`
	ClickHouseDatabase      string        `yaml:"clickhouse_database"` // empty uses the DSN database
	RunMigrations           bool          `yaml:"run_migrations" default:"true"`
}

// CacheConfig selects the stats cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis"`
	TTL             time.Duration `yaml:"ttl" default:"6h"`
	MaxSize         int           `yaml:"max_size" default:"1000" validate:"min=1"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"10m"`
	RedisAddr       string        `yaml:"redis_addr" default:"localhost:6379"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	KeyPrefix       string        `yaml:"key_prefix" default:"fximpact"`
}

// KafkaConfig configures record publishing.
type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers" validate:"required_if=Enabled true"`
	StatsTopic  string   `yaml:"stats_topic" default:"fx-family-stats"`
	ScoresTopic string   `yaml:"scores_topic" default:"fx-family-scores"`
}

// ServerConfig configures the HTTP server and the scheduled runs.
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	Schedule        string        `yaml:"schedule" default:"0 */6 * * *"` // cron spec, empty disables
	MetricsPath     string        `yaml:"metrics_path" default:"/metrics"`
}

// ExportConfig configures report outputs.
type ExportConfig struct {
	OutputDir string   `yaml:"output_dir" default:"reports"`
	Formats   []string `yaml:"formats" default:"[\"markdown\",\"csv\",\"xlsx\"]" validate:"dive,oneof=markdown csv xlsx json"`
}

// envOverrides are the settings that may come from the environment.
// Only non-empty values override the file configuration.
type envOverrides struct {
	LogLevel       string   `envconfig:"LOG_LEVEL"`
	PostgresDSN    string   `envconfig:"POSTGRES_DSN"`
	ClickHouseDSN  string   `envconfig:"CLICKHOUSE_DSN"`
	StorageBackend string   `envconfig:"STORAGE_BACKEND"`
	CacheBackend   string   `envconfig:"CACHE_BACKEND"`
	RedisAddr      string   `envconfig:"REDIS_ADDR"`
	RedisPassword  string   `envconfig:"REDIS_PASSWORD"`
	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS"`
	ServerAddr     string   `envconfig:"SERVER_ADDR"`
	Symbol         string   `envconfig:"SYMBOL"`
}

// Default returns the fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load builds the configuration. path may be empty to skip the YAML file.
// A .env file in the working directory is loaded when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	setIfNotEmpty(&c.Log.Level, env.LogLevel)
	setIfNotEmpty(&c.Storage.PostgresDSN, env.PostgresDSN)
	setIfNotEmpty(&c.Storage.ClickHouseDSN, env.ClickHouseDSN)
	setIfNotEmpty(&c.Storage.Backend, env.StorageBackend)
	setIfNotEmpty(&c.Cache.Backend, env.CacheBackend)
	setIfNotEmpty(&c.Cache.RedisAddr, env.RedisAddr)
	setIfNotEmpty(&c.Cache.RedisPassword, env.RedisPassword)
	setIfNotEmpty(&c.Server.Addr, env.ServerAddr)
	setIfNotEmpty(&c.Engine.Symbol, env.Symbol)
	if len(env.KafkaBrokers) > 0 {
		c.Kafka.Brokers = env.KafkaBrokers
		c.Kafka.Enabled = true
	}
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
