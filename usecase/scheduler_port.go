package usecase

import (
	"context"

	"github.com/fastygo/taskreminder/domain"
)

// ReminderScheduler abstracts the alarm service so use cases stay platform-agnostic.
// Implementations deliver at most one pending reminder per task id.
type ReminderScheduler interface {
	Schedule(ctx context.Context, reminder domain.Reminder) error
	Cancel(ctx context.Context, taskID int64) error
}
