package service

import (
	"context"
	"strings"
	"time"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/security"
	"sushi-system/internal/common/validation"
	"sushi-system/internal/config"
	"sushi-system/internal/domain"
	"sushi-system/internal/microservices/order/repository"
)

var ErrInvalidCredentials = pkgerrors.New(pkgerrors.CodeValidation, "invalid username or password")

type UserServiceInterface interface {
	Register(ctx context.Context, req domain.RegisterUserRequest) (domain.User, error)
	Authenticate(ctx context.Context, username, password string) (domain.User, error)
}

type UserService struct {
	users    repository.UserRepositoryInterface
	password config.PasswordConfig
	log      *logger.Logger
	now      func() time.Time
}

func NewUserService(users repository.UserRepositoryInterface, password config.PasswordConfig, log *logger.Logger) *UserService {
	return &UserService{users: users, password: password, log: log, now: time.Now}
}

func (s *UserService) Register(ctx context.Context, req domain.RegisterUserRequest) (domain.User, error) {
	if err := validation.Struct(req); err != nil {
		return domain.User{}, err
	}
	hash, err := security.HashPassword(req.Password, s.password)
	if err != nil {
		return domain.User{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user := domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		Postcode:     strings.ToUpper(strings.TrimSpace(req.Postcode)),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user_registered", map[string]any{"username": user.Username, "postcode": user.Postcode})
	return user, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown user and for a
// wrong password alike.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.log.Warn("password_hash_unreadable", err, map[string]any{"username": username})
		return domain.User{}, ErrInvalidCredentials
	}
	if !ok {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}
