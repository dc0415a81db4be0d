package tracking

import (
	"context"

	"sushi-system/internal/common/logger"
	"sushi-system/internal/config"
	"sushi-system/internal/connections/database"
	"sushi-system/internal/connections/rabbitmq"
	"sushi-system/internal/microservices/notificator"
	orderservice "sushi-system/internal/microservices/order/service"
	"sushi-system/internal/microservices/tracker"
	trackerservice "sushi-system/internal/microservices/tracker/service"
)

// Collaborators are the optional status sinks: the Postgres audit log and
// the RabbitMQ notifications exchange. Either may be disabled in config.
type Collaborators struct {
	Observers []orderservice.StatusObserver
	Tracker   *trackerservice.TrackerService

	closers []func()
}

func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Collaborators, error) {
	c := &Collaborators{}

	if cfg.Database.Enabled {
		db, err := database.ConnectDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = db.Close() })
		t, err := tracker.New(ctx, db, log)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Tracker = t
		c.Observers = append(c.Observers, t)
		log.Info("database_connected", map[string]any{"host": cfg.Database.Host, "port": cfg.Database.Port, "database": cfg.Database.Name})
	}

	if cfg.RabbitMQ.Enabled {
		client, err := rabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		pub, err := notificator.NewPublisher(client, cfg.RabbitMQ, log)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Observers = append(c.Observers, pub)
		log.Info("rabbitmq_connected", map[string]any{"host": cfg.RabbitMQ.Host, "port": cfg.RabbitMQ.Port, "vhost": cfg.RabbitMQ.VHost})
	}
	return c, nil
}

// Close releases connections in reverse order of opening.
func (c *Collaborators) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
