package repository

import (
	"context"
	"errors"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/connections/filestore"
	"sushi-system/internal/domain"
)

type UserRepositoryInterface interface {
	Create(ctx context.Context, user domain.User) error
	Get(ctx context.Context, username string) (domain.User, error)
}

// UserRepository keeps one file per user, users/<username>.json. Usernames
// are validated as alphanumeric before they reach it.
type UserRepository struct {
	store *filestore.Store
}

func NewUserRepository(store *filestore.Store) UserRepositoryInterface {
	return &UserRepository{store: store}
}

func userPath(username string) string { return "users/" + username + ".json" }

func (r *UserRepository) Create(_ context.Context, user domain.User) error {
	err := r.store.CreateJSON(userPath(user.Username), user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, filestore.ErrExists):
		return pkgerrors.Newf(pkgerrors.CodeDuplicate, "user %s already registered", user.Username)
	default:
		return persistence(err, "create user")
	}
}

func (r *UserRepository) Get(_ context.Context, username string) (domain.User, error) {
	var user domain.User
	if err := r.store.ReadJSON(userPath(username), &user); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return domain.User{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "user %s not registered", username)
		}
		return domain.User{}, persistence(err, "read user")
	}
	return user, nil
}
