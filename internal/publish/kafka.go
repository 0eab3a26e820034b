package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/observability"
)

// Header keys set on every message.
const (
	HeaderRunID      = "run_id"
	HeaderRecordType = "record_type"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string
	StatsTopic   string
	ScoresTopic  string
	WriteTimeout time.Duration
}

// KafkaPublisher writes JSON records keyed by family group so all updates of
// one group land on the same partition in order.
type KafkaPublisher struct {
	writer      messageWriter
	statsTopic  string
	scoresTopic string
	metrics     *observability.Metrics
	log         *logger.Logger
	now         func() time.Time
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig, metrics *observability.Metrics, log *logger.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.StatsTopic == "" || cfg.ScoresTopic == "" {
		return nil, errors.New("kafka topics are required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: time.Second,
	}

	return newKafkaPublisher(writer, cfg, metrics, log), nil
}

func newKafkaPublisher(w messageWriter, cfg KafkaConfig, metrics *observability.Metrics, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{
		writer:      w,
		statsTopic:  cfg.StatsTopic,
		scoresTopic: cfg.ScoresTopic,
		metrics:     metrics,
		log:         log.With(logger.String("component", "kafka_publisher")),
		now:         time.Now,
	}
}

// PublishStats sends one message per stats record.
func (p *KafkaPublisher) PublishStats(ctx context.Context, runID string, stats []*domain.FamilyStats) error {
	if len(stats) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(stats))
	for _, s := range stats {
		msg, err := p.message(p.statsTopic, runID, "family_stats",
			groupKey(s.Family, s.Country, s.HorizonMinutes), NewStatsMessage(runID, s))
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.write(ctx, p.statsTopic, msgs)
}

// PublishScores sends one message per score.
func (p *KafkaPublisher) PublishScores(ctx context.Context, runID string, scores []*domain.Score) error {
	if len(scores) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(scores))
	for _, s := range scores {
		msg, err := p.message(p.scoresTopic, runID, "family_score",
			groupKey(s.Family, s.Country, s.HorizonMinutes), NewScoreMessage(runID, s))
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.write(ctx, p.scoresTopic, msgs)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) message(topic, runID, recordType, key string, value interface{}) (kafka.Message, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", recordType, err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: HeaderRunID, Value: []byte(runID)},
			{Key: HeaderRecordType, Value: []byte(recordType)},
		},
	}, nil
}

func (p *KafkaPublisher) write(ctx context.Context, topic string, msgs []kafka.Message) error {
	start := p.now()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.log.Error("publish failed",
			logger.String("topic", topic),
			logger.Int("messages", len(msgs)),
			logger.Err(err),
		)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.metrics.RecordPublished(topic, len(msgs))
	p.log.Debug("published",
		logger.String("topic", topic),
		logger.Int("messages", len(msgs)),
		logger.Duration("duration", p.now().Sub(start)),
	)
	return nil
}

// groupKey is the partition key: family|country|horizon.
func groupKey(family domain.Family, country string, horizon int) string {
	return string(family) + "|" + country + "|" + strconv.Itoa(horizon)
}

var _ Publisher = (*KafkaPublisher)(nil)
