package repository

import (
	"context"

	"github.com/fastygo/taskreminder/domain"
)

// TaskRepository is the task store. ListByUser is ordered by due date ascending
// and always reads committed state.
type TaskRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Task, error)
	ListPending(ctx context.Context) ([]domain.Task, error)
	Insert(ctx context.Context, task *domain.Task) (int64, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id int64) error
	DeleteByUser(ctx context.Context, userID int64) error
}
