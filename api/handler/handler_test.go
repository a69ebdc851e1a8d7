package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/internal/infrastructure/monitor"
	infra "github.com/fastygo/taskreminder/internal/infrastructure/sqlite"
	"github.com/fastygo/taskreminder/internal/middleware"
	"github.com/fastygo/taskreminder/pkg/httpcontext"
	sqliterepo "github.com/fastygo/taskreminder/repository/sqlite"
	authUC "github.com/fastygo/taskreminder/usecase/auth"
	profileUC "github.com/fastygo/taskreminder/usecase/profile"
	taskUC "github.com/fastygo/taskreminder/usecase/task"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

type handlers struct {
	auth    *AuthHandler
	profile *ProfileHandler
	task    *TaskHandler
	tokens  *middleware.TokenManager
}

func newHandlers(t *testing.T) *handlers {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.db")
	logger := zaptest.NewLogger(t)

	require.NoError(t, infra.RunMigrations(path, logger))
	db, err := infra.Open(context.Background(), path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqliterepo.NewUserRepository(db)
	tasks := sqliterepo.NewTaskRepository(db)
	sessions := sqliterepo.NewSessionRepository(db, time.Hour)

	tasksUC := taskUC.New(tasks, nil, logger)
	accounts := authUC.New(users, sessions, tasksUC, time.Hour, logger)
	adapter := httpcontext.NewAdapter(time.Second)
	tokens := middleware.NewTokenManager("test-secret", "taskreminder")

	return &handlers{
		auth:    NewAuthHandler(accounts, tokens, adapter, logger),
		profile: NewProfileHandler(profileUC.New(users, tasks, logger), accounts, adapter, logger),
		task:    NewTaskHandler(tasksUC, adapter, logger),
		tokens:  tokens,
	}
}

func request(method, body string, userID int64, taskID int64) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	if userID > 0 {
		httpcontext.SetAuth(ctx, userID, "test-session")
	}
	if taskID > 0 {
		ctx.SetUserValue("id", fmt.Sprintf("%d", taskID))
	}
	return ctx
}

func decode(t *testing.T, ctx *fasthttp.RequestCtx, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func register(t *testing.T, h *handlers, email string) int64 {
	t.Helper()
	ctx := request(http.MethodPost, fmt.Sprintf(`{"username":"u","email":%q,"password":"secret1"}`, email), 0, 0)
	h.auth.Register(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	var resp struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	decode(t, ctx, &resp)
	return resp.User.ID
}

func TestAuthHandler(t *testing.T) {
	h := newHandlers(t)

	ctx := request(http.MethodPost, `{"username":"alice","email":"alice@example.com","password":"secret1"}`, 0, 0)
	h.auth.Register(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())

	var registered struct {
		User      domain.User `json:"user"`
		Token     string      `json:"token"`
		SessionID string      `json:"session_id"`
	}
	decode(t, ctx, &registered)
	assert.True(t, registered.User.IsLoggedIn)
	assert.NotContains(t, string(ctx.Response.Body()), "password")

	claims, err := h.tokens.Parse(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, registered.SessionID, claims.SessionID)

	ctx = request(http.MethodPost, `{"username":"again","email":"alice@example.com","password":"secret1"}`, 0, 0)
	h.auth.Register(ctx)
	assert.Equal(t, http.StatusConflict, ctx.Response.StatusCode())
	env := decode(t, ctx, nil)
	assert.Equal(t, "User with this email already exists", env.Error)

	ctx = request(http.MethodPost, `{"email":"alice@example.com","password":"nope123"}`, 0, 0)
	h.auth.Login(ctx)
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = request(http.MethodPost, `{"email":"bob@example.com","password":"secret1"}`, 0, 0)
	h.auth.Login(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	ctx = request(http.MethodPost, `not json`, 0, 0)
	h.auth.Login(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	ctx = request(http.MethodPost, `{"email":"alice@example.com","password":"secret1"}`, 0, 0)
	h.auth.Login(ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	ctx = request(http.MethodPost, "", registered.User.ID, 0)
	h.auth.Logout(ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
}

func TestTaskHandlerLifecycle(t *testing.T) {
	h := newHandlers(t)
	owner := register(t, h, "owner@example.com")
	stranger := register(t, h, "stranger@example.com")

	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	ctx := request(http.MethodPost, fmt.Sprintf(`{"task_name":"Pay rent","due_date":%q,"priority":"high"}`, due), owner, 0)
	h.task.CreateTask(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	var created domain.Task
	decode(t, ctx, &created)
	assert.Equal(t, domain.PriorityHigh, created.Priority)
	assert.Equal(t, domain.DefaultReminderMinutes, created.ReminderMinutesBefore)
	assert.False(t, created.IsCompleted)

	ctx = request(http.MethodGet, "", stranger, created.ID)
	h.task.GetTask(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	ctx = request(http.MethodPut, `{"reminder_minutes_before":15}`, owner, created.ID)
	h.task.UpdateTask(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var updated domain.Task
	decode(t, ctx, &updated)
	assert.Equal(t, 15, updated.ReminderMinutesBefore)
	assert.Equal(t, "Pay rent", updated.TaskName)

	ctx = request(http.MethodPost, "", owner, created.ID)
	h.task.ToggleTask(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var toggled domain.Task
	decode(t, ctx, &toggled)
	assert.True(t, toggled.IsCompleted)

	ctx = request(http.MethodGet, "", owner, 0)
	ctx.QueryArgs().Set("filter", "completed")
	h.task.GetTasks(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var completed []domain.Task
	decode(t, ctx, &completed)
	require.Len(t, completed, 1)
	assert.Equal(t, created.ID, completed[0].ID)

	ctx = request(http.MethodGet, "", owner, 0)
	ctx.QueryArgs().Set("filter", "someday")
	h.task.GetTasks(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	ctx = request(http.MethodDelete, "", stranger, created.ID)
	h.task.DeleteTask(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	ctx = request(http.MethodDelete, "", owner, created.ID)
	h.task.DeleteTask(ctx)
	assert.Equal(t, http.StatusNoContent, ctx.Response.StatusCode())

	ctx = request(http.MethodGet, "", owner, created.ID)
	h.task.GetTask(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
}

func TestTaskHandlerValidation(t *testing.T) {
	h := newHandlers(t)
	owner := register(t, h, "v@example.com")

	tests := []struct {
		name string
		body string
	}{
		{name: "blank name", body: `{"task_name":"  ","due_date":1772357400000}`},
		{name: "negative minutes", body: `{"task_name":"x","due_date":1772357400000,"reminder_minutes_before":-1}`},
		{name: "unknown priority", body: `{"task_name":"x","due_date":1772357400000,"priority":"urgent"}`},
		{name: "missing due date", body: `{"task_name":"x"}`},
		{name: "malformed", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := request(http.MethodPost, tt.body, owner, 0)
			h.task.CreateTask(ctx)
			assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode(), string(ctx.Response.Body()))
		})
	}

	ctx := request(http.MethodGet, "", 0, 0)
	h.task.GetTasks(ctx)
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = request(http.MethodGet, "", owner, 0)
	ctx.SetUserValue("id", "abc")
	h.task.GetTask(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func TestProfileHandler(t *testing.T) {
	h := newHandlers(t)
	owner := register(t, h, "p@example.com")

	ctx := request(http.MethodPut, `{"username":"Renamed"}`, owner, 0)
	h.profile.UpdateProfile(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	ctx = request(http.MethodPut, `{"current_password":"wrong1","new_password":"another1"}`, owner, 0)
	h.profile.ChangePassword(ctx)
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = request(http.MethodGet, "", owner, 0)
	h.profile.GetProfile(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var profile profileUC.Profile
	decode(t, ctx, &profile)
	assert.Equal(t, "Renamed", profile.User.Username)
	assert.Zero(t, profile.Stats.Total)

	ctx = request(http.MethodDelete, "", owner, 0)
	h.profile.DeleteProfile(ctx)
	assert.Equal(t, http.StatusNoContent, ctx.Response.StatusCode())

	ctx = request(http.MethodGet, "", owner, 0)
	h.profile.GetProfile(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validation("bad"), http.StatusBadRequest, "INVALID"},
		{domain.ErrDuplicateEmail, http.StatusConflict, "CONFLICT"},
		{domain.ErrTaskNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{authUC.ErrProfileNotSaved, http.StatusServiceUnavailable, "PERSISTENCE"},
		{domain.WrapError(domain.ErrCodeInternal, "list tasks", errors.New("disk")), http.StatusInternalServerError, "INTERNAL"},
		{errors.New("plain"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		status, code := mapError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

type staticStatus monitor.Status

func (s staticStatus) GetStatus() monitor.Status { return monitor.Status(s) }

func TestHealthHandler(t *testing.T) {
	healthy := staticStatus{Components: map[string]bool{"sqlite": true, "alarms": true}, LastCheck: time.Now()}
	ctx := &fasthttp.RequestCtx{}
	NewHealthHandler(healthy, nil, nil).Check(ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	degraded := staticStatus{Components: map[string]bool{"sqlite": true, "redis": false}, LastCheck: time.Now()}
	ctx = &fasthttp.RequestCtx{}
	NewHealthHandler(degraded, nil, nil).Check(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, ctx.Response.StatusCode())
}

func TestReminderOptions(t *testing.T) {
	h := newHandlers(t)
	ctx := request(http.MethodGet, "", 0, 0)
	h.task.ReminderOptions(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	var options []domain.ReminderOption
	decode(t, ctx, &options)
	assert.Equal(t, domain.ReminderOptions, options)
}
