package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskReminderAt(t *testing.T) {
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		minutes int
		want    time.Time
	}{
		{name: "default hour", minutes: 60, want: due.Add(-time.Hour)},
		{name: "zero lead time", minutes: 0, want: due},
		{name: "two days", minutes: 2880, want: due.Add(-48 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{DueDate: due, ReminderMinutesBefore: tt.minutes}
			assert.Equal(t, tt.want, task.ReminderAt())
			assert.Equal(t, due.UnixMilli()-int64(tt.minutes)*60000, task.ReminderAt().UnixMilli())
		})
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{in: "", want: PriorityNormal},
		{in: "high", want: PriorityHigh},
		{in: " LOW ", want: PriorityLow},
		{in: "NORMAL", want: PriorityNormal},
		{in: "urgent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsDomainError(err, ErrCodeInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskValidate(t *testing.T) {
	valid := func() *Task {
		return &Task{
			TaskName:              "Pay rent",
			DueDate:               time.Now().Add(time.Hour),
			ReminderMinutesBefore: 60,
			Priority:              PriorityNormal,
			UserID:                1,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Task)
	}{
		{name: "blank name", mutate: func(t *Task) { t.TaskName = "   " }},
		{name: "negative minutes", mutate: func(t *Task) { t.ReminderMinutesBefore = -1 }},
		{name: "bad priority", mutate: func(t *Task) { t.Priority = "URGENT" }},
		{name: "no owner", mutate: func(t *Task) { t.UserID = 0 }},
		{name: "no due date", mutate: func(t *Task) { t.DueDate = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := valid()
			tt.mutate(task)
			err := task.Validate()
			require.Error(t, err)
			assert.True(t, IsDomainError(err, ErrCodeInvalid))
		})
	}
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Now()
	past := &Task{DueDate: now.Add(-time.Minute)}
	assert.True(t, past.IsOverdue(now))

	past.IsCompleted = true
	assert.False(t, past.IsOverdue(now))

	future := &Task{DueDate: now.Add(time.Minute)}
	assert.False(t, future.IsOverdue(now))
}

func TestNewReminder(t *testing.T) {
	due := time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC)
	r := NewReminder(&Task{ID: 7, TaskName: "Pay rent", DueDate: due, ReminderMinutesBefore: 30})

	assert.Equal(t, int64(7), r.TaskID)
	assert.Equal(t, due.Add(-30*time.Minute), r.WakeAt)
	assert.Equal(t, "Task Reminder", r.Title)
	assert.Equal(t, "Don't forget: Pay rent", r.Body)
	assert.Equal(t, "Your task 'Pay rent' is due soon. Don't forget to complete it!", r.ExpandedBody)
}

func TestNormalizeDueDate(t *testing.T) {
	in := time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.FixedZone("X", 3600))
	got := NormalizeDueDate(in)
	assert.Equal(t, in.UnixMilli(), got.UnixMilli())
	assert.Equal(t, time.UnixMilli(in.UnixMilli()).UTC(), got)
}
