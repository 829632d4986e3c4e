package reconciler

import (
	"context"
	"errors"

	"classbook/internal/events"
	"classbook/pkg/kafka"
	"classbook/pkg/logger"
	"classbook/pkg/model"
)

type promoter interface {
	Promote(ctx context.Context, scheduleID string) ([]*model.Booking, error)
}

// DeferredPromotionHandler promotes a schedule as soon as a cancel reports it
// could not. Contention is returned as-is so the consumer retries it; once
// retries run out the ticker pass picks the schedule up anyway.
func DeferredPromotionHandler(p promoter, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		ev, err := events.Decode(msg)
		if err != nil {
			return err
		}
		if ev.Type != events.TypePromotionDeferred {
			return nil
		}
		if ev.ScheduleID == "" {
			return kafka.NewPermanentError("promotion.deferred event without schedule_id", nil)
		}

		promoted, err := p.Promote(ctx, ev.ScheduleID)
		if err != nil {
			return err
		}
		log.Info("Deferred promotion applied", "schedule_id", ev.ScheduleID, "promoted", len(promoted))
		return nil
	}
}

type messageConsumer interface {
	Start(ctx context.Context) error
	Close() error
}

// ConsumerWorker runs a Kafka consumer as an application worker.
type ConsumerWorker struct {
	name     string
	consumer messageConsumer
}

func NewConsumerWorker(name string, consumer *kafka.Consumer) *ConsumerWorker {
	return &ConsumerWorker{name: name, consumer: consumer}
}

func (w *ConsumerWorker) Name() string {
	return w.name
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	defer w.consumer.Close()
	err := w.consumer.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
