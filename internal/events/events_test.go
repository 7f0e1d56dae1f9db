package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
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

type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	pub := &KafkaPublisher{writer: writer, topic: "research.events"}

	event, err := domain.NewEvent(domain.EventTypeSessionDiscovered, "sess-1", domain.DiscoveredPayload{Phrase: "p", Candidates: 2})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), event))

	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	assert.Equal(t, "sess-1", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, domain.EventTypeSessionDiscovered, string(msg.Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.JSONEq(t, `{"query":"","phrase":"p","sequence":0,"paper_ids":null,"candidates":2}`, string(decoded.Payload))

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	pub, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.NoError(t, pub.Close())
}

func TestEmitter_PublishFailureIsSwallowed(t *testing.T) {
	metrics := observability.NewMetricsWithRegisterer("test", prometheus.NewRegistry())
	writer := &fakeWriter{err: errors.New("broker down")}
	emitter := NewEmitter(&KafkaPublisher{writer: writer, topic: "t"}, metrics, zerolog.Nop())

	emitter.EmitEnrichmentCompleted(context.Background(), "sess-1", domain.EnrichmentCompletedPayload{Kind: domain.EnrichmentCitations})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventTypeEnrichmentComplete, "error")))
}

func TestEmitter_NilPublisher(t *testing.T) {
	emitter := NewEmitter(nil, nil, zerolog.Nop())
	emitter.EmitDiscovered(context.Background(), "s", domain.DiscoveredPayload{})
	assert.NoError(t, emitter.Close())
}

func TestListener_Run(t *testing.T) {
	event, err := domain.NewEvent(domain.EventTypeSessionDiscovered, "sess-1", map[string]int{"n": 1})
	require.NoError(t, err)
	value, err := json.Marshal(event)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		msgs:   []kafka.Message{{Value: []byte("not json")}, {Value: value}},
		cancel: cancel,
	}
	listener := &Listener{reader: reader, logger: zerolog.Nop()}

	var got []*domain.Event
	err = listener.Run(ctx, func(_ context.Context, e *domain.Event) error {
		got = append(got, e)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1)
	assert.Equal(t, event.EventID, got[0].EventID)
}
