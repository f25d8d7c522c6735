package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxRetryInterval = 30 * time.Second

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Handler func(context.Context, Event) error

type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler Handler
	// newBackOff paces handler retries and fetch errors.
	newBackOff func() backoff.BackOff
	done       chan struct{}
}

// NewConsumer reads events of topic as part of consumer group groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	})
	return newConsumer(reader, logger)
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		logger:     logger.Named("kafka_consumer"),
		newBackOff: retryBackOff,
		done:       make(chan struct{}),
	}
}

// retryBackOff never gives up; the consume context bounds it.
func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0
	return b
}

func (c *Consumer) RegisterHandler(fn Handler) {
	c.handler = fn
}

// Start consumes until ctx is cancelled. A failing handler is retried with
// backoff and the message is committed only once it succeeds, so the group
// offset never moves past an unhandled event. Malformed messages are
// committed and skipped.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		fetchRetry := c.newBackOff()
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				wait := fetchRetry.NextBackOff()
				if wait == backoff.Stop {
					wait = maxRetryInterval
				}
				c.logger.Error("Failed to fetch message", zap.Error(err), zap.Duration("retry_in", wait))
				if !sleep(ctx, wait) {
					return
				}
				continue
			}
			fetchRetry.Reset()

			var event Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Error("Failed to parse event",
					zap.Error(err),
					zap.ByteString("value", msg.Value),
				)
				c.commit(ctx, msg, "")
				continue
			}

			if err := c.handle(ctx, event); err != nil {
				// only a cancelled context ends the retries; the message stays
				// uncommitted and is redelivered to the next group member
				c.logger.Warn("Stopped before event was handled",
					zap.String("event_id", event.ID),
					zap.Int64("offset", msg.Offset),
				)
				return
			}
			c.commit(ctx, msg, event.Type)
		}
	}()
}

func (c *Consumer) handle(ctx context.Context, event Event) error {
	if c.handler == nil {
		return nil
	}
	return backoff.RetryNotify(
		func() error { return c.handler(ctx, event) },
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			c.logger.Error("Failed to handle event",
				zap.Error(err),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Duration("retry_in", wait),
			)
		},
	)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Done is closed once the consume loop has exited.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
