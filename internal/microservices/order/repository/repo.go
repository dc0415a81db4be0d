package repository

import "sushi-system/internal/connections/filestore"

type Repository struct {
	OrderRepo OrderRepositoryInterface
	UserRepo  UserRepositoryInterface
}

func New(store *filestore.Store) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(store),
		UserRepo:  NewUserRepository(store),
	}
}
