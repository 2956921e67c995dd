package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestNewProducerNeedsBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("zstd"))
	require.NoError(t, err)
	assert.Equal(t, "zstd", p.comp)
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snappy")

	err := p.Publish(context.Background(), "regimes", []byte("AAPL"),
		map[string]int{"n_regimes": 3}, kafka.Header{Key: "event-type", Value: []byte("regime.computed")})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	assert.Equal(t, "regimes", m.Topic)
	assert.Equal(t, []byte("AAPL"), m.Key)
	var body map[string]int
	require.NoError(t, json.Unmarshal(m.Value, &body))
	assert.Equal(t, 3, body["n_regimes"])
	require.Len(t, m.Headers, 2)
	assert.Equal(t, "event-type", m.Headers[1].Key)

	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishWrapsWriterError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, "snappy")
	err := p.Publish(context.Background(), "regimes", nil, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Snappy, parseCompression(""))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
}
