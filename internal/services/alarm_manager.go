package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/internal/infrastructure/alarm"
	"github.com/fastygo/taskreminder/internal/metrics"
)

// ErrExactAlarmDenied is returned by SetExact when exact alarms are not permitted.
var ErrExactAlarmDenied = errors.New("exact alarms are not permitted")

type armed struct {
	timer *time.Timer
	gen   uint64
}

// AlarmManager arms persisted one-shot alarms and hands them to the notifier
// when they fire. Arming an alarm for a task replaces the previous one.
type AlarmManager struct {
	store      *alarm.Store
	notifier   Notifier
	allowExact bool
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	timers  map[int64]armed
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

func NewAlarmManager(store *alarm.Store, notifier Notifier, allowExact bool, logger *zap.Logger) *AlarmManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &AlarmManager{
		store:      store,
		notifier:   notifier,
		allowExact: allowExact,
		logger:     logger.Named("alarms"),
		now:        time.Now,
		timers:     make(map[int64]armed),
	}
}

// SetExact arms an alarm at exactly a.WakeAt.
func (m *AlarmManager) SetExact(ctx context.Context, a alarm.Alarm) error {
	if !m.allowExact {
		return ErrExactAlarmDenied
	}
	a.Kind = alarm.KindExact
	return m.set(ctx, a)
}

// Set arms an inexact alarm. The caller decides how far WakeAt may drift.
func (m *AlarmManager) Set(ctx context.Context, a alarm.Alarm) error {
	a.Kind = alarm.KindCoarse
	return m.set(ctx, a)
}

// Cancel disarms and forgets the alarm of a task. Unknown tasks are ignored.
func (m *AlarmManager) Cancel(_ context.Context, taskID int64) error {
	m.mu.Lock()
	m.disarmLocked(taskID)
	err := m.store.Delete(taskID)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	metrics.RemindersCancelled.Inc()
	m.updatePending()
	return nil
}

// Pending returns the persisted alarms ordered by wake time.
func (m *AlarmManager) Pending() ([]alarm.Alarm, error) {
	return m.store.List()
}

// Start re-arms every persisted alarm. Alarms already due fire right away.
func (m *AlarmManager) Start(ctx context.Context) error {
	alarms, err := m.store.List()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.stopped = false
	for _, a := range alarms {
		m.armLocked(a)
	}
	m.mu.Unlock()

	m.updatePending()
	m.logger.Info("alarm manager started", zap.Int("rearmed", len(alarms)))
	return nil
}

// Stop disarms all timers and waits for in-flight deliveries. Persisted alarms are kept.
func (m *AlarmManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	for id := range m.timers {
		m.disarmLocked(id)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("alarm manager stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// set persists and arms under one lock so a concurrent fire never sees a
// stored alarm that is not armed.
func (m *AlarmManager) set(_ context.Context, a alarm.Alarm) error {
	m.mu.Lock()
	if err := m.store.Put(a); err != nil {
		m.mu.Unlock()
		return err
	}
	if !m.stopped {
		m.armLocked(a)
	}
	m.mu.Unlock()

	metrics.RemindersScheduled.WithLabelValues(string(a.Kind)).Inc()
	m.updatePending()
	return nil
}

func (m *AlarmManager) armLocked(a alarm.Alarm) {
	m.disarmLocked(a.TaskID)

	m.gen++
	gen := m.gen
	delay := a.WakeAt.Sub(m.now())
	if delay < 0 {
		delay = 0
	}

	taskID := a.TaskID
	m.timers[taskID] = armed{
		gen: gen,
		timer: time.AfterFunc(delay, func() {
			m.fire(taskID, gen)
		}),
	}
}

func (m *AlarmManager) disarmLocked(taskID int64) {
	if t, ok := m.timers[taskID]; ok {
		t.timer.Stop()
		delete(m.timers, taskID)
	}
}

func (m *AlarmManager) fire(taskID int64, gen uint64) {
	m.mu.Lock()
	current, ok := m.timers[taskID]
	if !ok || current.gen != gen || m.stopped {
		m.mu.Unlock()
		return
	}
	delete(m.timers, taskID)

	a, found, err := m.store.Get(taskID)
	if err == nil && found {
		err = m.store.Delete(taskID)
	}
	if err != nil || !found {
		m.mu.Unlock()
		if err != nil {
			m.logger.Error("failed to take fired alarm", zap.Int64("task_id", taskID), zap.Error(err))
		}
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.notifier.Notify(ctx, a); err != nil {
		m.logger.Error("failed to deliver reminder", zap.Int64("task_id", taskID), zap.Error(err))
	}

	metrics.RemindersFired.Inc()
	m.updatePending()
}

func (m *AlarmManager) updatePending() {
	if size, err := m.store.Size(); err == nil {
		metrics.RemindersPending.Set(float64(size))
	}
}
