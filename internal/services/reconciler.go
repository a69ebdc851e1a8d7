package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/internal/infrastructure/alarm"
	"github.com/fastygo/taskreminder/internal/metrics"
	"github.com/fastygo/taskreminder/usecase"
)

// PendingTasks lists every incomplete task across users.
type PendingTasks interface {
	ListPending(ctx context.Context) ([]domain.Task, error)
}

// PendingAlarms lists the armed alarms.
type PendingAlarms interface {
	Pending() ([]alarm.Alarm, error)
}

// ReconcileResult reports what a sweep changed.
type ReconcileResult struct {
	Armed     int
	Cancelled int
}

// Reconciler periodically re-derives the expected reminders from the task
// store and repairs the alarms a partial failure left behind.
type Reconciler struct {
	tasks     PendingTasks
	alarms    PendingAlarms
	scheduler usecase.ReminderScheduler
	logger    *zap.Logger
	cron      *cron.Cron
	now       func() time.Time
}

func NewReconciler(
	tasks PendingTasks,
	alarms PendingAlarms,
	scheduler usecase.ReminderScheduler,
	interval time.Duration,
	logger *zap.Logger,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := &Reconciler{
		tasks:     tasks,
		alarms:    alarms,
		scheduler: scheduler,
		logger:    logger.Named("reconciler"),
		now:       time.Now,
	}

	if interval > 0 {
		rc.cron = cron.New(cron.WithSeconds())
		rc.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := rc.Reconcile(ctx); err != nil {
				rc.logger.Error("reconcile failed", zap.Error(err))
			}
		}))
	}

	return rc
}

// Start launches the cron scheduler. A zero interval leaves the sweep disabled.
func (rc *Reconciler) Start() {
	if rc == nil || rc.cron == nil {
		return
	}
	rc.cron.Start()
	rc.logger.Info("reconciler started")
}

// Stop gracefully stops the scheduler.
func (rc *Reconciler) Stop(ctx context.Context) {
	if rc == nil || rc.cron == nil {
		return
	}
	stopCtx := rc.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	rc.logger.Info("reconciler stopped")
}

// Reconcile arms missing or stale reminders of incomplete tasks and cancels
// alarms whose task is gone or completed. An alarm of an incomplete task whose
// wake time has passed is left to fire only if it still matches the task.
func (rc *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult

	tasks, err := rc.tasks.ListPending(ctx)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return result, err
	}
	alarms, err := rc.alarms.Pending()
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return result, err
	}

	armed := make(map[int64]alarm.Alarm, len(alarms))
	for _, a := range alarms {
		armed[a.TaskID] = a
	}

	now := rc.now()
	pending := make(map[int64]struct{}, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		pending[task.ID] = struct{}{}

		reminder := domain.NewReminder(task)
		a, isArmed := armed[task.ID]
		if isArmed && a.Matches(reminder) {
			continue
		}
		if !reminder.WakeAt.After(now) {
			if !isArmed {
				continue
			}
			if err := rc.scheduler.Cancel(ctx, task.ID); err != nil {
				rc.logger.Warn("failed to cancel stale reminder", zap.Int64("task_id", task.ID), zap.Error(err))
				continue
			}
			result.Cancelled++
			continue
		}
		if err := rc.scheduler.Schedule(ctx, reminder); err != nil {
			rc.logger.Warn("failed to arm reminder", zap.Int64("task_id", task.ID), zap.Error(err))
			continue
		}
		result.Armed++
	}

	for taskID := range armed {
		if _, ok := pending[taskID]; ok {
			continue
		}
		if err := rc.scheduler.Cancel(ctx, taskID); err != nil {
			rc.logger.Warn("failed to cancel orphaned reminder", zap.Int64("task_id", taskID), zap.Error(err))
			continue
		}
		result.Cancelled++
	}

	metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	if result.Armed > 0 || result.Cancelled > 0 {
		rc.logger.Info("reminders reconciled",
			zap.Int("armed", result.Armed),
			zap.Int("cancelled", result.Cancelled),
		)
	}
	return result, nil
}
