package courier

import (
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/inventory"
	"sushi-system/internal/microservices/courier/service"
	"sushi-system/internal/microservices/staff"
)

// NewFactory hires couriers that share one Dispatcher.
func NewFactory(catalog *inventory.Catalog, orders service.OrderBookInterface, defaults service.Config, log *logger.Logger, m *metrics.Engine) staff.Factory {
	dispatcher := service.NewDispatcher(catalog.Ingredients, catalog.Dishes, orders, log)
	return func(name string, cfg staff.WorkerConfig) (staff.Worker, error) {
		c := defaults
		if cfg.Speed > 0 {
			c.Speed = cfg.Speed
		}
		if cfg.TimeUnit > 0 {
			c.TimeUnit = cfg.TimeUnit
		}
		if cfg.IdlePoll > 0 {
			c.IdlePoll = cfg.IdlePoll
		}
		return service.NewCourier(name, dispatcher, catalog, c, log, m), nil
	}
}
