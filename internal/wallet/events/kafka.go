package events

import (
	"context"
	"encoding/json"
	"fmt"

	"walletverify/internal/platform/kafka/producer"
	"walletverify/internal/wallet/models"
)

// Header keys set on every Kafka record.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderRequestID = "request_id"
)

// MessageProducer is satisfied by *producer.Producer.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaPublisher writes events as JSON, keyed by address so every event for a
// wallet lands on one partition in order.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaPublisher(p MessageProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event models.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	headers := map[string]string{
		HeaderEventType: string(event.Type),
		HeaderEventID:   event.ID,
	}
	if event.RequestID != "" {
		headers[HeaderRequestID] = event.RequestID
	}
	return k.producer.Produce(ctx, &producer.Message{
		Topic:   k.topic,
		Key:     []byte(event.Address),
		Value:   value,
		Headers: headers,
	})
}
