package profile

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
	"github.com/fastygo/taskreminder/usecase"
)

const recentlyCompletedLimit = 3

// Stats summarises a user's tasks.
type Stats struct {
	Total             int                     `json:"total"`
	Completed         int                     `json:"completed"`
	Pending           int                     `json:"pending"`
	Overdue           int                     `json:"overdue"`
	CompletionPercent int                     `json:"completion_percent"`
	ByPriority        map[domain.Priority]int `json:"by_priority"`
	RecentlyCompleted []domain.Task           `json:"recently_completed"`
}

type Profile struct {
	User  *domain.User `json:"user"`
	Stats Stats        `json:"stats"`
}

type UseCase struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	logger *zap.Logger
	now    func() time.Time
}

func New(users repository.UserRepository, tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		tasks:  tasks,
		logger: logger,
		now:    time.Now,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, usecase.StoreError("get user", err)
	}

	tasks, err := uc.tasks.ListByUser(ctx, userID)
	if err != nil {
		uc.logger.Error("failed to load tasks for profile", zap.Int64("user_id", userID), zap.Error(err))
		return nil, usecase.StoreError("list tasks", err)
	}

	return &Profile{User: user, Stats: ComputeStats(tasks, uc.now())}, nil
}

// ComputeStats derives the profile counters from a task list.
func ComputeStats(tasks []domain.Task, now time.Time) Stats {
	stats := Stats{
		Total:             len(tasks),
		ByPriority:        make(map[domain.Priority]int, len(domain.Priorities)),
		RecentlyCompleted: []domain.Task{},
	}
	for _, p := range domain.Priorities {
		stats.ByPriority[p] = 0
	}

	var completed []domain.Task
	for i := range tasks {
		t := &tasks[i]
		stats.ByPriority[t.Priority]++
		if t.IsCompleted {
			stats.Completed++
			completed = append(completed, *t)
			continue
		}
		stats.Pending++
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}

	if stats.Total > 0 {
		stats.CompletionPercent = stats.Completed * 100 / stats.Total
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].DueDate.After(completed[j].DueDate)
	})
	if len(completed) > recentlyCompletedLimit {
		completed = completed[:recentlyCompletedLimit]
	}
	stats.RecentlyCompleted = append(stats.RecentlyCompleted, completed...)
	return stats
}
