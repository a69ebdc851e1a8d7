package repository

import (
	"context"

	"github.com/fastygo/taskreminder/domain"
)

// UserRepository is the credential store. Lookups return domain.ErrUserNotFound
// when nothing matches; Insert returns domain.ErrDuplicateEmail on a unique
// violation of the email column.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) (int64, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}
