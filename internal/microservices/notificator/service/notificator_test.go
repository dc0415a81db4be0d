package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/domain"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []amqp.Publishing
	exchanges []string
	err       error
}

func (f *fakeBroker) Publish(_ context.Context, exchange, _ string, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.exchanges = append(f.exchanges, exchange)
	f.published = append(f.published, msg)
	return nil
}

func TestPublishesStatusMessage(t *testing.T) {
	broker := &fakeBroker{}
	pub := NewStatusPublisher(broker, "notifications_fanout", logger.Nop())
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.OrderStatusChanged(context.Background(), domain.StatusEvent{
		OrderID: 7, Username: "alice", OldStatus: domain.StatusReceived,
		NewStatus: domain.StatusDelivering, ChangedBy: "courier-1", Timestamp: at,
	}))

	require.Len(t, broker.published, 1)
	msg := broker.published[0]
	assert.Equal(t, "notifications_fanout", broker.exchanges[0])
	assert.Equal(t, "7", msg.CorrelationId)
	assert.NotEmpty(t, msg.MessageId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "courier-1", msg.Headers["x-changed-by"])

	var body StatusMessage
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, 7, body.OrderNumber)
	assert.Equal(t, domain.StatusDelivering, body.NewStatus)
	assert.True(t, at.Equal(body.Timestamp))
}

func TestPublishFailureIsDependencyError(t *testing.T) {
	pub := NewStatusPublisher(&fakeBroker{err: errors.New("channel closed")}, "x", logger.Nop())
	err := pub.OrderStatusChanged(context.Background(), domain.StatusEvent{OrderID: 1, NewStatus: domain.StatusReceived})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

type fakeAck struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAck) Nack(tag uint64, _, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

type fakeConsumer struct {
	deliveries chan amqp.Delivery
	queue      string
}

func (f *fakeConsumer) Consume(queue, _ string, _ int) (<-chan amqp.Delivery, error) {
	f.queue = queue
	return f.deliveries, nil
}

func TestSubscriberLogsAndAcks(t *testing.T) {
	ack := &fakeAck{}
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery, 2)}
	buf := &bytes.Buffer{}
	log := logger.NewWithOptions("notificator", logger.Options{Output: buf})

	good, _ := json.Marshal(StatusMessage{OrderNumber: 4, NewStatus: domain.StatusDelivered})
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: good}
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("not json")}
	close(consumer.deliveries)

	svc := NewNotificatorService(consumer, "notifications_queue", log)
	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, "notifications_queue", consumer.queue)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
	assert.Contains(t, buf.String(), `"action":"notification_received"`)
	assert.Contains(t, buf.String(), `"order_number":4`)
}

func TestSubscriberStopsOnCancel(t *testing.T) {
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	svc := NewNotificatorService(consumer, "q", logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, svc.Run(ctx))
}
