package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

const defaultQueueSize = 1000

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// ensureTopic creates the topic, retrying while the broker is unreachable.
func ensureTopic(broker, topic string, maxElapsed time.Duration, logger *zap.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		conn, err := kafka.Dial("tcp", broker)
		if err != nil {
			logger.Warn("kafka not ready, retrying", zap.String("broker", broker), zap.Error(err))
			return err
		}
		defer conn.Close()

		err = conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
		if err != nil {
			logger.Warn("failed to create topic (may already exist)", zap.Error(err))
		}
		return nil
	}, policy)
}

func NewProducer(brokers []string, topic string, dialTimeout time.Duration, logger *zap.Logger) (*Producer, error) {
	logger = logger.Named("kafka_producer")
	if err := ensureTopic(brokers[0], topic, dialTimeout, logger); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}
	return newProducer(writer, defaultQueueSize, logger), nil
}

func newProducer(writer KafkaWriter, queueSize int, logger *zap.Logger) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, queueSize),
		logger:    logger,
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce enqueues the event without blocking. Events are dropped with a
// warning when the queue is full.
func (p *Producer) Produce(event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("company_id", event.CompanyID),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

func (p *Producer) drain() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.Int64("company_id", event.CompanyID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   event.Key(),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.Int64("company_id", event.CompanyID),
		)
		return
	}
}

// Close flushes queued events and closes the writer.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		close(p.closeChan)
		<-p.done
		if err := p.writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer", zap.Error(err))
		}
	})
}

// LogProducer stands in for Kafka when it is disabled: events are logged and
// handed synchronously to the registered handlers.
type LogProducer struct {
	logger   *zap.Logger
	handlers []Handler
}

func NewLogProducer(logger *zap.Logger, handlers ...Handler) *LogProducer {
	return &LogProducer{logger: logger.Named("event_log"), handlers: handlers}
}

func (p *LogProducer) Produce(event Event) {
	p.logger.Info("event",
		zap.String("event_type", string(event.Type)),
		zap.Int64("company_id", event.CompanyID),
		zap.Int64("user_id", event.UserID),
		zap.Int64("actor_id", event.ActorID),
	)
	for _, handle := range p.handlers {
		if err := handle(context.Background(), event); err != nil {
			p.logger.Error("Failed to handle event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
		}
	}
}

func (p *LogProducer) Close() {}
