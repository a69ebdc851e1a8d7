package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/api/transport"
	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/pkg/httpcontext"
	taskUC "github.com/fastygo/taskreminder/usecase/task"
)

const dayLayout = "2006-01-02"

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks ordered by due date
// @Tags tasks
// @Param filter query string false "all|completed|pending|overdue|high_priority|normal_priority|low_priority"
// @Param due_on query string false "YYYY-MM-DD"
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	userID, ok := h.userID(ctx)
	if !ok {
		return
	}

	kind, err := taskUC.ParseFilterKind(string(ctx.QueryArgs().Peek("filter")))
	if err != nil {
		h.respondInvalid(ctx, err.Error())
		return
	}
	filter := taskUC.Filter{Kind: kind}
	if dueOn := string(ctx.QueryArgs().Peek("due_on")); dueOn != "" {
		day, err := time.ParseInLocation(dayLayout, dueOn, time.UTC)
		if err != nil {
			h.respondInvalid(ctx, "due_on must be YYYY-MM-DD")
			return
		}
		filter.DueOn = day
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.Filter(stdCtx, userID, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	userID, ok := h.userID(ctx)
	if !ok {
		return
	}

	req, ok := h.parseRequest(ctx)
	if !ok {
		return
	}
	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		h.respondInvalid(ctx, err.Error())
		return
	}
	minutes := domain.DefaultReminderMinutes
	if req.ReminderMinutesBefore != nil {
		minutes = *req.ReminderMinutesBefore
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id, err := h.uc.Create(stdCtx, req.TaskName, req.DueDate.Time, minutes, priority, userID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	created, err := h.uc.Get(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	req, ok := h.parseRequest(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}

	if req.TaskName != "" {
		task.TaskName = req.TaskName
	}
	if !req.DueDate.IsZero() {
		task.DueDate = req.DueDate.Time
	}
	if req.ReminderMinutesBefore != nil {
		task.ReminderMinutesBefore = *req.ReminderMinutesBefore
	}
	if req.Priority != "" {
		priority, err := domain.ParsePriority(req.Priority)
		if err != nil {
			h.respondInvalid(ctx, err.Error())
			return
		}
		task.Priority = priority
	}
	if req.IsCompleted != nil {
		task.IsCompleted = *req.IsCompleted
	}

	if err := h.uc.Update(stdCtx, task); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Flip task completion
// @Tags tasks
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}

	toggled, err := h.uc.ToggleCompletion(stdCtx, task)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, toggled)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}

	if err := h.uc.Delete(stdCtx, task); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Suggested reminder lead times
// @Tags tasks
// @Router /api/v1/reminder-options [get]
func (h *TaskHandler) ReminderOptions(ctx *fasthttp.RequestCtx) {
	h.respondSuccess(ctx, http.StatusOK, domain.ReminderOptions)
}

func (h *TaskHandler) parseRequest(ctx *fasthttp.RequestCtx) (*transport.TaskRequest, bool) {
	var req transport.TaskRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return nil, false
	}
	return &req, true
}

// ownedTask loads the task named by the {id} route parameter. Tasks of other
// users are reported as not found.
func (h *TaskHandler) ownedTask(ctx *fasthttp.RequestCtx, stdCtx context.Context) (*domain.Task, bool) {
	userID, ok := h.userID(ctx)
	if !ok {
		return nil, false
	}

	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondInvalid(ctx, "invalid task id")
		return nil, false
	}

	task, err := h.uc.Get(stdCtx, id)
	if err == nil && task.UserID != userID {
		err = domain.ErrTaskNotFound
	}
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return nil, false
	}
	return task, true
}
