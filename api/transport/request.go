package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TaskRequest is used for create and update. On update, omitted fields keep
// their stored values.
type TaskRequest struct {
	TaskName              string    `json:"task_name"`
	DueDate               Timestamp `json:"due_date"`
	ReminderMinutesBefore *int      `json:"reminder_minutes_before"`
	Priority              string    `json:"priority"`
	IsCompleted           *bool     `json:"is_completed"`
}

// Timestamp accepts an RFC 3339 string or epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("due_date: %w", err)
		}
		t.Time = parsed
		return nil
	}

	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("due_date: expected RFC 3339 string or epoch milliseconds")
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}
