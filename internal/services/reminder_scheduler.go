package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/internal/infrastructure/alarm"
	"github.com/fastygo/taskreminder/usecase"
)

// Alarms is the subset of AlarmManager the scheduler drives.
type Alarms interface {
	SetExact(ctx context.Context, a alarm.Alarm) error
	Set(ctx context.Context, a alarm.Alarm) error
	Cancel(ctx context.Context, taskID int64) error
}

// ReminderScheduler implements the use case scheduler port on top of alarms.
// It asks for an exact alarm first and falls back to a coarse one when exact
// alarms are denied.
type ReminderScheduler struct {
	alarms       Alarms
	coarseWindow time.Duration
	logger       *zap.Logger
}

func NewReminderScheduler(alarms Alarms, coarseWindow time.Duration, logger *zap.Logger) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{
		alarms:       alarms,
		coarseWindow: coarseWindow,
		logger:       logger.Named("scheduler"),
	}
}

func (s *ReminderScheduler) Schedule(ctx context.Context, reminder domain.Reminder) error {
	a := alarm.FromReminder(reminder)

	err := s.alarms.SetExact(ctx, a)
	if !errors.Is(err, ErrExactAlarmDenied) {
		return err
	}

	a.WakeAt = coarseWakeTime(a.RequestedAt, s.coarseWindow)
	s.logger.Debug("exact alarm denied, using coarse alarm",
		zap.Int64("task_id", a.TaskID),
		zap.Time("requested_at", a.RequestedAt),
		zap.Time("wake_at", a.WakeAt),
	)
	return s.alarms.Set(ctx, a)
}

func (s *ReminderScheduler) Cancel(ctx context.Context, taskID int64) error {
	return s.alarms.Cancel(ctx, taskID)
}

// coarseWakeTime rounds t up to the next multiple of window.
func coarseWakeTime(t time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return t
	}
	rounded := t.Truncate(window)
	if rounded.Before(t) {
		rounded = rounded.Add(window)
	}
	return rounded
}

var _ usecase.ReminderScheduler = (*ReminderScheduler)(nil)
