package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/account-portal/internal/domain/entity"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already registered")
)

// UserRepository defines the interface for user-related database operations.
// Lookups return ErrNotFound when no row matches; Create and Update report
// unique violations as ErrEmailTaken or ErrUsernameTaken.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}
