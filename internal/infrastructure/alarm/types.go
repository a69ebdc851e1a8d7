package alarm

import (
	"time"

	"github.com/fastygo/taskreminder/domain"
)

// Kind tells how precisely an alarm was armed.
type Kind string

const (
	KindExact  Kind = "exact"
	KindCoarse Kind = "coarse"
)

// Alarm is a persisted one-shot wake-up for a task. There is at most one per task.
type Alarm struct {
	TaskID       int64     `json:"task_id"`
	Kind         Kind      `json:"kind"`
	RequestedAt  time.Time `json:"requested_at"`
	WakeAt       time.Time `json:"wake_at"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	ExpandedBody string    `json:"expanded_body"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromReminder builds an alarm that wakes exactly at the reminder time.
func FromReminder(r domain.Reminder) Alarm {
	return Alarm{
		TaskID:       r.TaskID,
		Kind:         KindExact,
		RequestedAt:  r.WakeAt,
		WakeAt:       r.WakeAt,
		Title:        r.Title,
		Body:         r.Body,
		ExpandedBody: r.ExpandedBody,
	}
}

// Matches reports whether the alarm already delivers r.
func (a Alarm) Matches(r domain.Reminder) bool {
	return a.TaskID == r.TaskID &&
		a.RequestedAt.Equal(r.WakeAt) &&
		a.Title == r.Title &&
		a.Body == r.Body &&
		a.ExpandedBody == r.ExpandedBody
}

func (a *Alarm) normalize() {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Kind == "" {
		a.Kind = KindExact
	}
	if a.RequestedAt.IsZero() {
		a.RequestedAt = a.WakeAt
	}
}
