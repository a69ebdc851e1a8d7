package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultReminderMinutes is the lead time used when a task does not set one.
const DefaultReminderMinutes = 60

// Priority ranks a task. The zero value is not a valid priority; use PriorityNormal.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// Priorities lists every valid priority, highest first.
var Priorities = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// DisplayName is the label shown next to a task.
func (p Priority) DisplayName() string {
	switch p {
	case PriorityHigh:
		return "High Priority"
	case PriorityLow:
		return "Low Priority"
	default:
		return "Normal Priority"
	}
}

// ParsePriority accepts the stored names case-insensitively. Empty input yields NORMAL.
func ParsePriority(s string) (Priority, error) {
	if strings.TrimSpace(s) == "" {
		return PriorityNormal, nil
	}
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", Validation(fmt.Sprintf("unknown priority %q", s))
	}
	return p, nil
}

// ReminderOption is one of the lead times offered to callers.
type ReminderOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// ReminderOptions are suggestions only; any non-negative lead time is accepted.
var ReminderOptions = []ReminderOption{
	{Minutes: 15, Label: "15 minutes before"},
	{Minutes: 30, Label: "30 minutes before"},
	{Minutes: 60, Label: "1 hour before"},
	{Minutes: 120, Label: "2 hours before"},
	{Minutes: 1440, Label: "1 day before"},
	{Minutes: 2880, Label: "2 days before"},
}

// Task represents a user-owned reminder item.
type Task struct {
	ID                    int64     `json:"id"`
	UserID                int64     `json:"user_id"`
	TaskName              string    `json:"task_name"`
	DueDate               time.Time `json:"due_date"`
	ReminderMinutesBefore int       `json:"reminder_minutes_before"`
	Priority              Priority  `json:"priority"`
	IsCompleted           bool      `json:"is_completed"`
}

// ReminderAt is the wake time of the task's reminder.
func (t *Task) ReminderAt() time.Time {
	return t.DueDate.Add(-time.Duration(t.ReminderMinutesBefore) * time.Minute)
}

// IsOverdue reports whether an incomplete task is past its due date.
func (t *Task) IsOverdue(reference time.Time) bool {
	return t != nil && !t.IsCompleted && t.DueDate.Before(reference)
}

// Validate checks the fields a caller controls.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if strings.TrimSpace(t.TaskName) == "" {
		return Validation("Task name cannot be empty")
	}
	if t.ReminderMinutesBefore < 0 {
		return Validation("Reminder minutes must not be negative")
	}
	if !t.Priority.Valid() {
		return Validation(fmt.Sprintf("unknown priority %q", t.Priority))
	}
	if t.UserID <= 0 {
		return Validation("Task must belong to a user")
	}
	if t.DueDate.IsZero() {
		return Validation("Due date is required")
	}
	return nil
}

// NormalizeDueDate drops sub-millisecond precision and location so a task
// compares equal after a round trip through storage.
func NormalizeDueDate(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
