package kafka_middleware

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"classbook/pkg/kafka"
	"classbook/pkg/logger"
)

func TestMetricsCountOutcomes(t *testing.T) {
	m := NewMetrics()
	produce := m.ProducerMiddleware()
	consume := m.ConsumerMiddleware()
	msg := kafka.NewMessage().WithKey("k").WithRawValue([]byte("{}")).Build()

	ok := func(context.Context, kafka.Message) error { return nil }
	fail := func(context.Context, kafka.Message) error { return errors.New("boom") }

	_ = produce(context.Background(), msg, ok)
	_ = produce(context.Background(), msg, ok)
	_ = produce(context.Background(), msg, fail)
	_ = consume(context.Background(), msg, ok)
	_ = consume(context.Background(), msg, fail)

	s := m.Snapshot()
	if s.Published != 2 || s.PublishFailed != 1 {
		t.Errorf("publish counts = %d/%d, want 2/1", s.Published, s.PublishFailed)
	}
	if s.Consumed != 1 || s.ConsumeFailed != 1 {
		t.Errorf("consume counts = %d/%d, want 1/1", s.Consumed, s.ConsumeFailed)
	}
}

func TestLoggingConsumerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: logger.DEBUG, Format: logger.JSON, Output: &buf, Service: "test"})
	mw := LoggingConsumerMiddleware(log)
	msg := kafka.NewMessage().WithKey("sched-1").WithEventType("promotion.deferred").WithRawValue([]byte("{}")).Build()

	wantErr := errors.New("boom")
	err := mw(context.Background(), msg, func(context.Context, kafka.Message) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("middleware swallowed error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Failed to process message") || !strings.Contains(out, "promotion.deferred") {
		t.Errorf("log output missing fields: %s", out)
	}
}
