package notificator

import (
	"context"

	"sushi-system/internal/common/logger"
	"sushi-system/internal/config"
	"sushi-system/internal/connections/rabbitmq"
	"sushi-system/internal/microservices/notificator/service"
)

// NewPublisher declares the notifications exchange and returns the
// observer that publishes to it.
func NewPublisher(client *rabbitmq.Client, cfg config.RabbitMQConfig, log *logger.Logger) (*service.StatusPublisher, error) {
	if err := client.DeclareTopology(cfg.Exchange, cfg.Queue); err != nil {
		return nil, err
	}
	return service.NewStatusPublisher(client, cfg.Exchange, log.Named("notificator")), nil
}

// Subscribe blocks, logging notifications until ctx is cancelled.
func Subscribe(ctx context.Context, client *rabbitmq.Client, cfg config.RabbitMQConfig, log *logger.Logger) error {
	if err := client.DeclareTopology(cfg.Exchange, cfg.Queue); err != nil {
		return err
	}
	return service.NewNotificatorService(client, cfg.Queue, log.Named("notificator")).Run(ctx)
}
