package transport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRequestDueDate(t *testing.T) {
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		body    string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339", body: `{"due_date":"2026-03-01T09:30:00Z"}`, want: want},
		{name: "epoch millis", body: `{"due_date":` + "1772357400000" + `}`, want: want},
		{name: "omitted", body: `{}`},
		{name: "null", body: `{"due_date":null}`},
		{name: "bad string", body: `{"due_date":"tomorrow"}`, wantErr: true},
		{name: "bad number", body: `{"due_date":1.5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req TaskRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(req.DueDate.Time), "got %v", req.DueDate.Time)
		})
	}
}

func TestTaskRequestOptionalFields(t *testing.T) {
	var req TaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"task_name":"x","reminder_minutes_before":0}`), &req))
	require.NotNil(t, req.ReminderMinutesBefore)
	assert.Zero(t, *req.ReminderMinutesBefore)
	assert.Nil(t, req.IsCompleted)
}
