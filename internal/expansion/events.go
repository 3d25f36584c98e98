package expansion

import (
	"context"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/messaging/kafka"
)

// KafkaEventBus publishes expansion events onto the Kafka-backed bus
// built in internal/infrastructure/messaging/kafka. It is never required
// for correctness — Controller falls back to NoopBus when no broker is
// configured.
type KafkaEventBus struct {
	Producer *kafka.Producer
	Source   string
}

// NewKafkaEventBus wraps an already-constructed kafka.Producer.
func NewKafkaEventBus(producer *kafka.Producer, source string) *KafkaEventBus {
	if source == "" {
		source = "expansion-controller"
	}
	return &KafkaEventBus{Producer: producer, Source: source}
}

func (b *KafkaEventBus) Publish(ctx context.Context, topic string, payload interface{}) error {
	env, err := kafka.NewEventEnvelope(topic, b.Source, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic)
	if err != nil {
		return err
	}
	return b.Producer.Publish(ctx, msg)
}
