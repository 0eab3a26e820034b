package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/observability"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher(w *fakeWriter) *KafkaPublisher {
	return newKafkaPublisher(w, KafkaConfig{StatsTopic: "stats", ScoresTopic: "scores"},
		observability.NewMetrics("test", nil), nil)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_PublishStats(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	stats := []*domain.FamilyStats{
		{StatsKey: domain.StatsKey{Family: "NFP", Country: "US", HorizonMinutes: 30, LookbackDays: 1095}, N: 12, Sufficient: true, MFEP80: 18.4},
		{StatsKey: domain.StatsKey{Family: "CPI", HorizonMinutes: 60, LookbackDays: 1095}, N: 2},
	}
	require.NoError(t, p.PublishStats(context.Background(), "run-1", stats))
	require.Len(t, w.msgs, 2)

	msg := w.msgs[0]
	assert.Equal(t, "stats", msg.Topic)
	assert.Equal(t, "NFP|US|30", string(msg.Key))
	assert.Equal(t, "run-1", header(msg, HeaderRunID))
	assert.Equal(t, "family_stats", header(msg, HeaderRecordType))

	var decoded StatsMessage
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "NFP", decoded.Family)
	assert.Equal(t, 12, decoded.NEvents)
	assert.Equal(t, 18.4, decoded.MFEP80)

	assert.Equal(t, "CPI||60", string(w.msgs[1].Key))
}

func TestKafkaPublisher_PublishScores(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	scores := []*domain.Score{{Family: "NFP", Country: "US", HorizonMinutes: 30, Composite: 80, Grade: "A", Tradability: domain.TradabilityExcellent}}
	require.NoError(t, p.PublishScores(context.Background(), "run-2", scores))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "scores", w.msgs[0].Topic)
	assert.Equal(t, "family_score", header(w.msgs[0], HeaderRecordType))

	var decoded ScoreMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "EXCELLENT", decoded.Tradability)
}

func TestKafkaPublisher_EmptyAndErrors(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	require.NoError(t, p.PublishStats(context.Background(), "run", nil))
	assert.Empty(t, w.msgs)

	w.err = errors.New("broker down")
	err := p.PublishScores(context.Background(), "run", []*domain.Score{{Family: "NFP"}})
	assert.ErrorIs(t, err, w.err)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{StatsTopic: "a", ScoresTopic: "b"}, nil, nil)
	assert.Error(t, err)
}
