package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"RegimeAPI/internal/domain/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	topic   string
	key     []byte
	value   interface{}
	headers []kafka.Header
	err     error
}

func (r *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error {
	r.topic, r.key, r.value, r.headers = topic, key, value, headers
	return r.err
}

func (r *recordingProducer) Close() error { return nil }

func TestKafkaEventPublisherKeysBySymbol(t *testing.T) {
	rp := &recordingProducer{}
	pub := NewKafkaEventPublisher(rp, "regimeapi.regimes")
	ev := &models.RegimeComputedEvent{ID: "e-1", Symbol: "AAPL", NRegimes: 3, ComputedAt: time.Now()}

	require.NoError(t, pub.PublishRegimeComputed(context.Background(), ev))
	assert.Equal(t, "regimeapi.regimes", rp.topic)
	assert.Equal(t, []byte("AAPL"), rp.key)
	assert.Same(t, ev, rp.value)
	require.Len(t, rp.headers, 2)
	assert.Equal(t, "e-1", string(rp.headers[1].Value))
}

func TestKafkaEventPublisherWrapsError(t *testing.T) {
	pub := NewKafkaEventPublisher(&recordingProducer{err: errors.New("no leader")}, "t")
	err := pub.PublishRegimeComputed(context.Background(), &models.RegimeComputedEvent{ID: "e-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "e-2")
}
