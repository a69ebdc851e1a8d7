package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
)

type sessionRepository struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewSessionRepository creates a Postgres-backed session repository.
func NewSessionRepository(pool *pgxpool.Pool, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepository{pool: pool, ttl: ttl}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var (
		session  domain.Session
		metadata []byte
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at, metadata FROM sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt, &metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &session.Metadata)
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

	const query = `
	INSERT INTO sessions (id, user_id, created_at, expires_at, metadata)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET expires_at = EXCLUDED.expires_at,
		metadata = EXCLUDED.metadata
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt,
		marshalMap(session.Metadata),
	)
	if err != nil && isForeignKeyViolation(err) {
		return domain.ErrUserNotFound
	}
	return err
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (r *sessionRepository) Extend(ctx context.Context, id string, ttlSeconds int) error {
	duration := time.Duration(ttlSeconds) * time.Second
	if duration <= 0 {
		duration = r.ttl
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET expires_at = NOW() + make_interval(secs => $2) WHERE id = $1`,
		id, duration.Seconds(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
