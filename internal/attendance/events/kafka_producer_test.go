package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter is a mock implementation of KafkaWriter.
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

func newTestProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger,
		closeChan: make(chan struct{}),
	}
}

func TestSendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	p := newTestProducer(mockWriter, zaptest.NewLogger(t), 1)

	employeeID := uuid.New()
	var written []kafka.Message
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).([]kafka.Message)
		}).
		Return(nil)

	p.sendEvent(context.Background(), Event{
		Type:       AssignmentCreated,
		EmployeeID: employeeID,
	})

	mockWriter.AssertExpectations(t)
	require.Len(t, written, 1)
	assert.Equal(t, employeeID.String(), string(written[0].Key),
		"messages are keyed by employee so one employee's events stay ordered")

	var event Event
	require.NoError(t, json.Unmarshal(written[0].Value, &event))
	assert.Equal(t, AssignmentCreated, event.Type)
	assert.Equal(t, employeeID, event.EmployeeID)
}

func TestSendEventWriteFailure(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	core, logs := observer.New(zap.ErrorLevel)
	p := newTestProducer(mockWriter, zap.New(core), 1)

	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable"))

	p.sendEvent(context.Background(), Event{Type: ClockEventStamped, EmployeeID: uuid.New()})

	mockWriter.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("Failed to produce event").Len())
}

func TestSendEventSerializationFailure(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	core, logs := observer.New(zap.ErrorLevel)
	p := newTestProducer(mockWriter, zap.New(core), 1)

	original := jsonMarshal
	jsonMarshal = func(any) ([]byte, error) { return nil, errors.New("marshal failed") }
	defer func() { jsonMarshal = original }()

	p.sendEvent(context.Background(), Event{Type: AbsenceRegistered, EmployeeID: uuid.New()})

	assert.Equal(t, 1, logs.FilterMessage("Failed to serialize event").Len())
	mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestProduceDeliversThroughEventLoop(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	p := newTestProducer(mockWriter, zaptest.NewLogger(t), 10)

	delivered := make(chan struct{})
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(delivered) }).
		Return(nil)
	mockWriter.On("Close").Return(nil)

	go p.eventLoop()
	p.Produce(RulesChanged, uuid.Nil, nil)

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered to the writer")
	}
	p.Close()
}

func TestProduceDropsWhenQueueFull(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	core, logs := observer.New(zap.WarnLevel)
	// No event loop is draining, so the single slot fills immediately.
	p := newTestProducer(mockWriter, zap.New(core), 1)

	p.Produce(AssignmentCreated, uuid.New(), nil)
	p.Produce(AssignmentCreated, uuid.New(), nil)

	assert.Equal(t, 1, logs.FilterMessage("Kafka producer queue full, dropping event").Len())
}

func TestClose(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	p := newTestProducer(mockWriter, zaptest.NewLogger(t), 1)
	mockWriter.On("Close").Return(nil)

	go p.eventLoop()
	p.Close()

	mockWriter.AssertExpectations(t)
}
