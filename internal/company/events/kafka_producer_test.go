package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(InviteSent, 10, 2, 1)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, InviteSent, event.Type)
	assert.Equal(t, int64(10), event.CompanyID)
	assert.Equal(t, int64(2), event.UserID)
	assert.Equal(t, int64(1), event.ActorID)
	assert.False(t, event.OccurredAt.IsZero())
	assert.Equal(t, []byte("10"), event.Key())
	assert.NotEqual(t, event.ID, NewEvent(InviteSent, 10, 2, 1).ID)
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := &Producer{events: make(chan Event, 1), logger: zaptest.NewLogger(t)}

		producer.Produce(NewEvent(InviteSent, 10, 2, 1))

		assert.Equal(t, 1, len(producer.events))
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := &Producer{events: make(chan Event, 1), logger: zap.New(core)}

		producer.Produce(NewEvent(InviteSent, 10, 2, 1))
		producer.Produce(NewEvent(InviteSent, 10, 3, 1)) // This should be dropped

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.Int64("company_id", 10)).Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &Producer{
		writer: mockWriter,
		logger: zaptest.NewLogger(t),
	}
	event := NewEvent(InviteAccepted, 10, 2, 2)

	t.Run("successful send", func(t *testing.T) {
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		producer.sendEvent(context.Background(), event)

		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{
				Key:   []byte("10"),
				Value: mustMarshal(event),
			},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.Int64("company_id", 10)).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_CloseFlushesQueue(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, 10, zaptest.NewLogger(t))
	producer.Produce(NewEvent(MemberLeft, 10, 2, 2))
	producer.Produce(NewEvent(MemberRemoved, 10, 3, 1))

	producer.Close()
	producer.Close()

	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}
	mockWriter.AssertNumberOfCalls(t, "WriteMessages", 2)
	mockWriter.AssertNumberOfCalls(t, "Close", 1)
}

func TestProducer_EventLoop(t *testing.T) {
	written := make(chan struct{}, 1)
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		written <- struct{}{}
	})
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, 1, zaptest.NewLogger(t))
	defer producer.Close()

	producer.Produce(NewEvent(AdminAssigned, 10, 2, 1))

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("event was not written")
	}
}

func TestLogProducer(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	producer := NewLogProducer(zap.New(core))

	producer.Produce(NewEvent(QuizPublished, 10, 0, 1))

	entries := recorded.FilterMessage("event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "event_log", entries[0].LoggerName)
}

func TestLogProducer_Handlers(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	var handled []EventType
	producer := NewLogProducer(zap.New(core),
		func(_ context.Context, e Event) error {
			handled = append(handled, e.Type)
			return nil
		},
		func(context.Context, Event) error { return errors.New("boom") },
	)

	producer.Produce(NewEvent(InviteSent, 10, 2, 1))

	assert.Equal(t, []EventType{InviteSent}, handled)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())
}

func mustMarshal(e Event) []byte {
	data, _ := json.Marshal(e)
	return data
}
