package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository returns a SQLite-backed implementation of UserRepository.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password_hash, is_logged_in, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
	return scanUser(row)
}

func (r *userRepository) Insert(ctx context.Context, user *domain.User) (int64, error) {
	if user == nil {
		return 0, domain.ErrInvalidPayload
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
	INSERT INTO users (username, email, password_hash, is_logged_in, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		user.Username,
		user.Email,
		user.PasswordHash,
		boolToInt(user.IsLoggedIn),
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateEmail
		}
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	user.ID = id
	return id, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}

	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
	UPDATE users
	SET username = ?,
		email = ?,
		password_hash = ?,
		is_logged_in = ?,
		updated_at = ?
	WHERE id = ?
	`,
		user.Username,
		user.Email,
		user.PasswordHash,
		boolToInt(user.IsLoggedIn),
		toMillis(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return requireOneRow(res, domain.ErrUserNotFound)
}

// Delete removes the user; tasks and sessions go with it through ON DELETE CASCADE.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireOneRow(res, domain.ErrUserNotFound)
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user               domain.User
		loggedIn           int
		createdAt, updated int64
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&loggedIn,
		&createdAt,
		&updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	user.IsLoggedIn = loggedIn != 0
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updated)
	return &user, nil
}

func requireOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
