package domain

import (
	"fmt"
	"time"
)

// ReminderTitle is the notification title for every task reminder.
const ReminderTitle = "Task Reminder"

// Reminder is the payload handed to the reminder scheduler.
type Reminder struct {
	TaskID       int64     `json:"task_id"`
	WakeAt       time.Time `json:"wake_at"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	ExpandedBody string    `json:"expanded_body"`
}

// NewReminder derives the reminder for a task from its current fields.
func NewReminder(task *Task) Reminder {
	return Reminder{
		TaskID:       task.ID,
		WakeAt:       task.ReminderAt(),
		Title:        ReminderTitle,
		Body:         fmt.Sprintf("Don't forget: %s", task.TaskName),
		ExpandedBody: fmt.Sprintf("Your task '%s' is due soon. Don't forget to complete it!", task.TaskName),
	}
}
