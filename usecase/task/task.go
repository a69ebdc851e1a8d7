package task

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
	"github.com/fastygo/taskreminder/usecase"
)

// UseCase persists task mutations and keeps the reminder scheduler in step with them.
// The store write and the scheduler call are not atomic; the reconciler closes the gap.
type UseCase struct {
	tasks     repository.TaskRepository
	scheduler usecase.ReminderScheduler
	logger    *zap.Logger
	now       func() time.Time
}

func New(tasks repository.TaskRepository, scheduler usecase.ReminderScheduler, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:     tasks,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for the future-wake-time check.
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	if now != nil {
		uc.now = now
	}
	return uc
}

// ListForUser returns the user's tasks ordered by due date. On failure it
// returns an empty slice together with the error.
func (uc *UseCase) ListForUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	tasks, err := uc.tasks.ListByUser(ctx, userID)
	if err != nil {
		uc.logger.Error("failed to list tasks", zap.Int64("user_id", userID), zap.Error(err))
		return []domain.Task{}, usecase.StoreError("list tasks", err)
	}
	return tasks, nil
}

// Filter returns the subset of the user's tasks matching f, still ordered by due date.
func (uc *UseCase) Filter(ctx context.Context, userID int64, f Filter) ([]domain.Task, error) {
	tasks, err := uc.ListForUser(ctx, userID)
	if err != nil {
		return tasks, err
	}

	now := uc.now()
	out := make([]domain.Task, 0, len(tasks))
	for i := range tasks {
		if f.match(&tasks[i], now) {
			out = append(out, tasks[i])
		}
	}
	return out, nil
}

func (uc *UseCase) Get(ctx context.Context, taskID int64) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, usecase.StoreError("get task", err)
	}
	return task, nil
}

// Create inserts an incomplete task and schedules its reminder when the wake time is still ahead.
func (uc *UseCase) Create(ctx context.Context, taskName string, dueDate time.Time, reminderMinutesBefore int, priority domain.Priority, userID int64) (int64, error) {
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !dueDate.IsZero() {
		dueDate = domain.NormalizeDueDate(dueDate)
	}
	task := &domain.Task{
		UserID:                userID,
		TaskName:              taskName,
		DueDate:               dueDate,
		ReminderMinutesBefore: reminderMinutesBefore,
		Priority:              priority,
	}
	if err := task.Validate(); err != nil {
		return 0, err
	}

	id, err := uc.tasks.Insert(ctx, task)
	if err != nil {
		return 0, usecase.StoreError("insert task", err)
	}

	uc.scheduleIfDue(ctx, task)
	return id, nil
}

// Update persists every field of task, cancels its reminder and re-arms it if still relevant.
func (uc *UseCase) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	if !task.DueDate.IsZero() {
		task.DueDate = domain.NormalizeDueDate(task.DueDate)
	}
	if err := task.Validate(); err != nil {
		return err
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return usecase.StoreError("update task", err)
	}

	uc.cancel(ctx, task.ID)
	if !task.IsCompleted {
		uc.scheduleIfDue(ctx, task)
	}
	return nil
}

// Delete removes the task and its reminder. A task already gone still has its reminder cancelled.
func (uc *UseCase) Delete(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	err := uc.tasks.Delete(ctx, task.ID)
	if err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
		return usecase.StoreError("delete task", err)
	}

	uc.cancel(ctx, task.ID)
	return usecase.StoreError("delete task", err)
}

// ToggleCompletion flips IsCompleted and applies it as an update. The caller's task is left untouched.
func (uc *UseCase) ToggleCompletion(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	toggled := *task
	toggled.IsCompleted = !task.IsCompleted
	if err := uc.Update(ctx, &toggled); err != nil {
		return nil, err
	}
	return &toggled, nil
}

// CancelRemindersForUser cancels the reminder of every task the user owns.
func (uc *UseCase) CancelRemindersForUser(ctx context.Context, userID int64) error {
	tasks, err := uc.tasks.ListByUser(ctx, userID)
	if err != nil {
		return usecase.StoreError("list tasks", err)
	}
	for i := range tasks {
		uc.cancel(ctx, tasks[i].ID)
	}
	return nil
}

func (uc *UseCase) scheduleIfDue(ctx context.Context, task *domain.Task) {
	if uc.scheduler == nil {
		return
	}
	reminder := domain.NewReminder(task)
	if !reminder.WakeAt.After(uc.now()) {
		uc.logger.Debug("reminder time already passed",
			zap.Int64("task_id", task.ID),
			zap.Time("wake_at", reminder.WakeAt),
		)
		return
	}
	if err := uc.scheduler.Schedule(ctx, reminder); err != nil {
		uc.logger.Warn("failed to schedule reminder", zap.Int64("task_id", task.ID), zap.Error(err))
	}
}

func (uc *UseCase) cancel(ctx context.Context, taskID int64) {
	if uc.scheduler == nil {
		return
	}
	if err := uc.scheduler.Cancel(ctx, taskID); err != nil {
		uc.logger.Warn("failed to cancel reminder", zap.Int64("task_id", taskID), zap.Error(err))
	}
}
