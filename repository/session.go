package repository

import (
	"context"

	"github.com/fastygo/taskreminder/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}
