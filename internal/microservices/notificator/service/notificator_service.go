package service

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"sushi-system/internal/common/logger"
)

type Consumer interface {
	Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error)
}

// NotificatorService logs every status message on the notifications queue.
type NotificatorService struct {
	consumer Consumer
	queue    string
	log      *logger.Logger
}

func NewNotificatorService(consumer Consumer, queue string, log *logger.Logger) *NotificatorService {
	return &NotificatorService{consumer: consumer, queue: queue, log: log}
}

// Run consumes until ctx is done or the broker closes the channel.
func (ns *NotificatorService) Run(ctx context.Context) error {
	deliveries, err := ns.consumer.Consume(ns.queue, "notificator", 10)
	if err != nil {
		return err
	}
	ns.log.Info("notification_subscriber_started", map[string]any{"queue": ns.queue})
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				ns.log.Warn("notification_channel_closed", nil, map[string]any{"queue": ns.queue})
				return nil
			}
			ns.handle(d)
		}
	}
}

func (ns *NotificatorService) handle(d amqp.Delivery) {
	var msg StatusMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		ns.log.Warn("notification_malformed", err, map[string]any{"message_id": d.MessageId})
		_ = d.Nack(false, false)
		return
	}
	ns.log.Info("notification_received", map[string]any{
		"order_number": msg.OrderNumber,
		"username":     msg.Username,
		"old_status":   msg.OldStatus,
		"new_status":   msg.NewStatus,
		"changed_by":   msg.ChangedBy,
		"message_id":   d.MessageId,
	})
	_ = d.Ack(false)
}
