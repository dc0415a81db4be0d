package order

import (
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/config"
	"sushi-system/internal/connections/filestore"
	"sushi-system/internal/microservices/order/repository"
	"sushi-system/internal/microservices/order/service"
)

// New wires the order and user services over the file store.
func New(store *filestore.Store, menu service.Menu, password config.PasswordConfig, log *logger.Logger, m *metrics.Engine, observers ...service.StatusObserver) *service.Service {
	repo := repository.New(store)
	return service.New(*repo, menu, password, log.Named("orders"), m, observers...)
}
