package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "classbook/pkg/errors"
	"classbook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (s *recordingSink) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func newTestConsumer(handler MessageHandler, sink *recordingSink) *Consumer {
	c := &Consumer{
		topic:      "booking-events",
		groupID:    "reconciler",
		maxRetries: 2,
		handler:    handler,
		log:        logger.Discard(),
	}
	if sink != nil {
		c.dlqWriter = sink
		c.dlqTopic = "booking-events-dlq"
	}
	return c
}

func testMessage() Message {
	return NewMessage().WithKey("sched-1").WithRawValue([]byte(`{}`)).WithEventType("promotion.deferred").Build()
}

func TestProcessMessage_RetriesContention(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		if calls < 3 {
			return apperrors.Contention("class is busy")
		}
		return nil
	}, nil)

	require.NoError(t, c.processMessage(context.Background(), testMessage()))
	assert.Equal(t, 3, calls)
}

func TestProcessMessage_ExhaustedGoesToDLQ(t *testing.T) {
	sink := &recordingSink{}
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		return NewTransientError("lease store down", errors.New("connection reset"))
	}, sink)

	err := c.processMessage(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, 3, calls, "one attempt plus two retries")
	require.Len(t, sink.msgs, 1)
	assert.Equal(t, "booking-events", header(sink.msgs[0], HeaderOriginalTopic))
	assert.Equal(t, "reconciler", header(sink.msgs[0], HeaderDLQConsumerGroup))
	assert.Equal(t, "2", header(sink.msgs[0], HeaderRetryCount))
}

func TestProcessMessage_BusinessErrorNotRetried(t *testing.T) {
	sink := &recordingSink{}
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		return apperrors.BusinessRule("schedule has ended", nil)
	}, sink)

	require.Error(t, c.processMessage(context.Background(), testMessage()))
	assert.Equal(t, 1, calls)
	assert.Len(t, sink.msgs, 1)
}

func TestProcessMessage_DLQFailureWrapsOriginal(t *testing.T) {
	original := NewPermanentError("bad payload", nil)
	sink := &recordingSink{err: errors.New("dlq unavailable")}
	c := newTestConsumer(func(ctx context.Context, msg Message) error { return original }, sink)

	err := c.processMessage(context.Background(), testMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, original)
}

func TestProcessMessage_MiddlewareOrder(t *testing.T) {
	var order []string
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		order = append(order, "handler")
		return nil
	}, nil)
	for _, name := range []string{"outer", "inner"} {
		name := name
		c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}

	require.NoError(t, c.processMessage(context.Background(), testMessage()))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestProcessMessage_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestConsumer(func(context.Context, Message) error {
		cancel()
		return apperrors.Contention("busy")
	}, nil)
	c.retryBackoff = 1 << 40

	err := c.processMessage(ctx, testMessage())
	assert.ErrorIs(t, err, context.Canceled)
}
