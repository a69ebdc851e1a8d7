package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
)

type taskRepository struct {
	db *sql.DB
}

// NewTaskRepository returns a SQLite-backed implementation of TaskRepository.
func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, user_id, task_name, due_date, reminder_minutes_before, priority, is_completed`

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (r *taskRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY due_date ASC, id ASC`, userID)
}

func (r *taskRepository) ListPending(ctx context.Context) ([]domain.Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE is_completed = 0 ORDER BY due_date ASC, id ASC`)
}

func (r *taskRepository) Insert(ctx context.Context, task *domain.Task) (int64, error) {
	if task == nil {
		return 0, domain.ErrInvalidPayload
	}

	res, err := r.db.ExecContext(ctx, `
	INSERT INTO tasks (user_id, task_name, due_date, reminder_minutes_before, priority, is_completed)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		task.UserID,
		task.TaskName,
		task.DueDate.UnixMilli(),
		task.ReminderMinutesBefore,
		string(task.Priority),
		boolToInt(task.IsCompleted),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrUserNotFound
		}
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	task.ID = id
	return id, nil
}

// Update replaces every column except the owner.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	res, err := r.db.ExecContext(ctx, `
	UPDATE tasks
	SET task_name = ?,
		due_date = ?,
		reminder_minutes_before = ?,
		priority = ?,
		is_completed = ?
	WHERE id = ?
	`,
		task.TaskName,
		task.DueDate.UnixMilli(),
		task.ReminderMinutesBefore,
		string(task.Priority),
		boolToInt(task.IsCompleted),
		task.ID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res, domain.ErrTaskNotFound)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireOneRow(res, domain.ErrTaskNotFound)
}

func (r *taskRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ?`, userID)
	return err
}

func (r *taskRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task      domain.Task
		due       int64
		priority  string
		completed int
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.TaskName,
		&due,
		&task.ReminderMinutesBefore,
		&priority,
		&completed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.DueDate = fromMillis(due)
	task.Priority = domain.Priority(priority)
	task.IsCompleted = completed != 0
	return &task, nil
}
