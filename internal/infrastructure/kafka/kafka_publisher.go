package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jehnsen/coop-lending/pkg/events"
	pkgkafka "github.com/jehnsen/coop-lending/pkg/kafka"
)

// DefaultTopic carries every lending domain event.
const DefaultTopic = "lending.events"

var _ events.EntryPublisher = (*KafkaEventPublisher)(nil)

// MessagePublisher is satisfied by *pkgkafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// KafkaEventPublisher implements events.EntryPublisher by writing outbox
// entries to Kafka, keyed by loan ID so a loan's events stay ordered within
// one partition.
type KafkaEventPublisher struct {
	producer MessagePublisher
	topic    string
	logger   *slog.Logger
}

// NewKafkaEventPublisher creates a publisher targeting the given Kafka producer and topic.
func NewKafkaEventPublisher(producer MessagePublisher, topic string, logger *slog.Logger) *KafkaEventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// PublishEntries sends already-serialised outbox entries to Kafka.
func (p *KafkaEventPublisher) PublishEntries(ctx context.Context, entries ...events.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, 0, len(entries))
	for _, e := range entries {
		p.logger.DebugContext(ctx, "publishing domain event",
			"event_type", e.EventType,
			"aggregate_id", e.AggregateID,
			"tenant_id", e.TenantID,
			"topic", p.topic,
			"payload_size", len(e.Payload),
		)

		messages = append(messages, pkgkafka.Message{
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: map[string]string{
				"event_type":     e.EventType,
				"event_id":       e.ID,
				"tenant_id":      e.TenantID,
				"aggregate_type": e.AggregateType,
			},
		})
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}
	return nil
}
