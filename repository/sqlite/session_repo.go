package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
)

type sessionRepository struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionRepository creates a SQLite-backed session repository.
func NewSessionRepository(db *sql.DB, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepository{db: db, ttl: ttl}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var (
		session            domain.Session
		createdAt, expires int64
		metadata           sql.NullString
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, metadata FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.UserID, &createdAt, &expires, &metadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expires)
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &session.Metadata)
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.ExpiresAt.Before(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sessions (id, user_id, created_at, expires_at, metadata)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET expires_at = excluded.expires_at,
		metadata = excluded.metadata
	`,
		session.ID,
		session.UserID,
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
		marshalMap(session.Metadata),
	)
	if err != nil && isForeignKeyViolation(err) {
		return domain.ErrUserNotFound
	}
	return err
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionRepository) Extend(ctx context.Context, id string, ttlSeconds int) error {
	duration := time.Duration(ttlSeconds) * time.Second
	if duration <= 0 {
		duration = r.ttl
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE id = ?`,
		toMillis(time.Now().Add(duration)), id,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res, domain.ErrSessionNotFound)
}
