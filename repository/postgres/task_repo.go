package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, user_id, task_name, due_date, reminder_minutes_before, priority, is_completed`

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *taskRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY due_date ASC, id ASC`, userID)
}

func (r *taskRepository) ListPending(ctx context.Context) ([]domain.Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE is_completed = FALSE ORDER BY due_date ASC, id ASC`)
}

func (r *taskRepository) Insert(ctx context.Context, task *domain.Task) (int64, error) {
	if task == nil {
		return 0, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO tasks (user_id, task_name, due_date, reminder_minutes_before, priority, is_completed)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`

	if err := r.pool.QueryRow(ctx, query,
		task.UserID,
		task.TaskName,
		task.DueDate,
		task.ReminderMinutesBefore,
		string(task.Priority),
		task.IsCompleted,
	).Scan(&task.ID); err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrUserNotFound
		}
		return 0, err
	}

	return task.ID, nil
}

// Update replaces every column except the owner.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET task_name = $2,
		due_date = $3,
		reminder_minutes_before = $4,
		priority = $5,
		is_completed = $6
	WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		task.ID,
		task.TaskName,
		task.DueDate,
		task.ReminderMinutesBefore,
		string(task.Priority),
		task.IsCompleted,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1`, userID)
	return err
}

func (r *taskRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
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
		task     domain.Task
		priority string
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.TaskName,
		&task.DueDate,
		&task.ReminderMinutesBefore,
		&priority,
		&task.IsCompleted,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.DueDate = domain.NormalizeDueDate(task.DueDate)
	task.Priority = domain.Priority(priority)
	return &task, nil
}
