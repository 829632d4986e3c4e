package events

import (
	"context"
	"fmt"

	"classbook/pkg/kafka"
	"classbook/pkg/middleware"
)

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher writes events keyed by schedule id, so every event of one
// schedule lands on the same partition in order.
type KafkaPublisher struct {
	producer messagePublisher
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	key := ev.ScheduleID
	if key == "" {
		key = ev.UserID
	}

	builder := kafka.NewMessage().
		WithKey(key).
		WithValue(ev).
		WithEventType(ev.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithTimestamp(ev.OccurredAt)
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		builder = builder.WithCorrelationID(id)
	}

	msg, err := builder.BuildE()
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	return p.producer.Publish(ctx, msg)
}

// Decode reads an Event back from a consumed message.
func Decode(msg kafka.Message) (Event, error) {
	var ev Event
	if err := msg.DecodeValue(&ev); err != nil {
		return Event{}, kafka.NewPermanentError("malformed booking event", err)
	}
	if ev.Type == "" {
		ev.Type = msg.GetEventType()
	}
	return ev, nil
}
