package repository

import (
	"context"
	"fmt"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"

	"github.com/segmentio/kafka-go"
)

// EventProducer is the subset of pkg/kafka.Producer used for domain events.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error
	Close() error
}

// KafkaEventPublisher writes regime events keyed by symbol.
type KafkaEventPublisher struct {
	producer EventProducer
	topic    string
}

func NewKafkaEventPublisher(p EventProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: p, topic: topic}
}

func (p *KafkaEventPublisher) PublishRegimeComputed(ctx context.Context, ev *models.RegimeComputedEvent) error {
	err := p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev,
		kafka.Header{Key: "event-type", Value: []byte("regime.computed")},
		kafka.Header{Key: "event-id", Value: []byte(ev.ID)},
	)
	if err != nil {
		return fmt.Errorf("publish regime event %s: %w", ev.ID, err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
