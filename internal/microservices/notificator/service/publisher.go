package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/domain"
)

const publishTimeout = 5 * time.Second

// Publisher is the broker side of the rabbitmq client.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

// StatusMessage is the body published on the notifications exchange.
type StatusMessage struct {
	OrderNumber int                `json:"order_number"`
	Username    string             `json:"username"`
	OldStatus   domain.OrderStatus `json:"old_status"`
	NewStatus   domain.OrderStatus `json:"new_status"`
	ChangedBy   string             `json:"changed_by"`
	Timestamp   time.Time          `json:"timestamp"`
}

// StatusPublisher fans order transitions out to the notifications exchange.
type StatusPublisher struct {
	pub      Publisher
	exchange string
	log      *logger.Logger
	newID    func() string
}

func NewStatusPublisher(pub Publisher, exchange string, log *logger.Logger) *StatusPublisher {
	return &StatusPublisher{pub: pub, exchange: exchange, log: log, newID: uuid.NewString}
}

func (p *StatusPublisher) OrderStatusChanged(ctx context.Context, ev domain.StatusEvent) error {
	body, err := json.Marshal(StatusMessage{
		OrderNumber: ev.OrderID,
		Username:    ev.Username,
		OldStatus:   ev.OldStatus,
		NewStatus:   ev.NewStatus,
		ChangedBy:   ev.ChangedBy,
		Timestamp:   ev.Timestamp,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode status message")
	}

	msg := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     p.newID(),
		CorrelationId: strconv.Itoa(ev.OrderID),
		Timestamp:     time.Now().UTC(),
		Headers: amqp.Table{
			"x-source":     "sushi-system",
			"x-changed-by": ev.ChangedBy,
		},
		Body: body,
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.pub.Publish(pctx, p.exchange, "", msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish status message")
	}
	p.log.Debug("notification_published", map[string]any{
		"order_id":   ev.OrderID,
		"new_status": ev.NewStatus,
		"message_id": msg.MessageId,
	})
	return nil
}
