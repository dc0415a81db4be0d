package service

import (
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/config"
	"sushi-system/internal/microservices/order/repository"
)

type Service struct {
	OrderService *OrderService
	UserService  *UserService
}

func New(repo repository.Repository, menu Menu, password config.PasswordConfig, log *logger.Logger, m *metrics.Engine, observers ...StatusObserver) *Service {
	return &Service{
		OrderService: NewOrderService(repo, menu, log, m, observers...),
		UserService:  NewUserService(repo.UserRepo, password, log),
	}
}
