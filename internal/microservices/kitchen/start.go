package kitchen

import (
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/inventory"
	"sushi-system/internal/microservices/kitchen/service"
	"sushi-system/internal/microservices/staff"
)

// NewFactory hires preparers that share one Reserver. Fields left zero in the
// per-worker config take the values from defaults.
func NewFactory(ingredients *inventory.IngredientLedger, dishes *inventory.DishLedger, defaults service.Config, log *logger.Logger, m *metrics.Engine) staff.Factory {
	reserver := service.NewReserver(ingredients, dishes)
	return func(name string, cfg staff.WorkerConfig) (staff.Worker, error) {
		c := defaults
		if cfg.PrepMin > 0 {
			c.PrepMin = cfg.PrepMin
		}
		if cfg.PrepMax > 0 {
			c.PrepMax = cfg.PrepMax
		}
		if cfg.IdlePoll > 0 {
			c.IdlePoll = cfg.IdlePoll
		}
		return service.NewPreparer(name, reserver, dishes, c, log, m), nil
	}
}
