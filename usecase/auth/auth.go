package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/repository"
	"github.com/fastygo/taskreminder/usecase"
)

var (
	ErrProfileNotSaved  = domain.NewError(domain.ErrCodePersistence, "Profile update was not saved to database")
	ErrPasswordNotSaved = domain.NewError(domain.ErrCodePersistence, "Password change was not saved to database")
)

// ReminderCanceller drops every pending reminder of a user before the account goes away.
type ReminderCanceller interface {
	CancelRemindersForUser(ctx context.Context, userID int64) error
}

type UseCase struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	reminders  ReminderCanceller
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New wires the auth use case. reminders may be nil when no scheduler is configured.
func New(users repository.UserRepository, sessions repository.SessionRepository, reminders ReminderCanceller, sessionTTL time.Duration, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &UseCase{
		users:      users,
		sessions:   sessions,
		reminders:  reminders,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an account and marks it logged in.
func (uc *UseCase) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, domain.Validation("Invalid email format")
	}
	if utf8.RuneCountInString(password) < domain.MinPasswordLength {
		return nil, domain.Validation("Password must be at least 6 characters")
	}
	if strings.TrimSpace(username) == "" {
		return nil, domain.Validation("Username cannot be empty")
	}

	if _, err := uc.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, usecase.StoreError("lookup user", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: HashPassword(password),
	}
	if _, err := uc.users.Insert(ctx, user); err != nil {
		return nil, usecase.StoreError("insert user", err)
	}

	user.IsLoggedIn = true
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, usecase.StoreError("mark user logged in", err)
	}

	uc.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Authenticate checks credentials and sets the logged-in flag.
func (uc *UseCase) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.Validation("Email and password cannot be empty")
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, usecase.StoreError("lookup user", err)
	}
	if !verifyPassword(user.PasswordHash, password) {
		uc.logger.Debug("password mismatch", zap.Int64("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}

	user.IsLoggedIn = true
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, usecase.StoreError("mark user logged in", err)
	}
	return user, nil
}

// Login authenticates and opens a session carrying the given metadata.
func (uc *UseCase) Login(ctx context.Context, email, password string, metadata map[string]string) (*domain.User, *domain.Session, error) {
	user, err := uc.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	session, err := uc.CreateSession(ctx, user.ID, metadata)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// SignOut clears the logged-in flag and revokes every session of the user. Repeated calls succeed.
func (uc *UseCase) SignOut(ctx context.Context, userID int64) error {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return usecase.StoreError("lookup user", err)
	}

	user.IsLoggedIn = false
	if err := uc.users.Update(ctx, user); err != nil {
		return usecase.StoreError("mark user logged out", err)
	}

	if uc.sessions != nil {
		if err := uc.sessions.DeleteByUser(ctx, userID); err != nil {
			uc.logger.Warn("failed to revoke sessions", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

func (uc *UseCase) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, usecase.StoreError("lookup user", err)
	}
	return user, nil
}

// UpdateUsername renames the user and verifies the write by reading it back.
func (uc *UseCase) UpdateUsername(ctx context.Context, userID int64, username string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.Validation("Username cannot be empty")
	}

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, usecase.StoreError("lookup user", err)
	}

	user.Username = username
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, usecase.StoreError("update user", err)
	}

	stored, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, usecase.StoreError("reload user", err)
	}
	if stored.Username != username {
		uc.logger.Error("username update not persisted", zap.Int64("user_id", userID))
		return nil, ErrProfileNotSaved
	}
	return stored, nil
}

// ChangePassword replaces the password hash after checking the current password.
func (uc *UseCase) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) (*domain.User, error) {
	if strings.TrimSpace(currentPassword) == "" {
		return nil, domain.Validation("Current password cannot be empty")
	}
	if utf8.RuneCountInString(newPassword) < domain.MinPasswordLength {
		return nil, domain.Validation("New password must be at least 6 characters")
	}

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, usecase.StoreError("lookup user", err)
	}
	if !verifyPassword(user.PasswordHash, currentPassword) {
		return nil, domain.ErrWrongPassword
	}

	hash := HashPassword(newPassword)
	user.PasswordHash = hash
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, usecase.StoreError("update password", err)
	}

	stored, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, usecase.StoreError("reload user", err)
	}
	if stored.PasswordHash != hash {
		uc.logger.Error("password change not persisted", zap.Int64("user_id", userID))
		return nil, ErrPasswordNotSaved
	}
	return stored, nil
}

// DeleteUser removes the account. Its tasks and sessions cascade; reminders are
// cancelled first because the cascade leaves no rows to find them by.
func (uc *UseCase) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := uc.users.GetByID(ctx, userID); err != nil {
		return usecase.StoreError("lookup user", err)
	}

	if uc.reminders != nil {
		if err := uc.reminders.CancelRemindersForUser(ctx, userID); err != nil {
			uc.logger.Warn("failed to cancel reminders", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	if err := uc.users.Delete(ctx, userID); err != nil {
		return usecase.StoreError("delete user", err)
	}

	if uc.sessions != nil {
		if err := uc.sessions.DeleteByUser(ctx, userID); err != nil {
			uc.logger.Warn("failed to revoke sessions", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	uc.logger.Info("user deleted", zap.Int64("user_id", userID))
	return nil
}

func (uc *UseCase) CreateSession(ctx context.Context, userID int64, metadata map[string]string) (*domain.Session, error) {
	if _, err := uc.users.GetByID(ctx, userID); err != nil {
		return nil, usecase.StoreError("lookup user", err)
	}

	now := uc.now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.sessionTTL),
		Metadata:  metadata,
	}

	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, usecase.StoreError("save session", err)
	}
	return session, nil
}

// GetSession returns a live session. Expired sessions are deleted and reported as not found.
func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, usecase.StoreError("load session", err)
	}
	if session.IsExpired(uc.now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(uc.sessionTTL.Seconds())); err != nil {
		return nil, usecase.StoreError("extend session", err)
	}
	session.ExpiresAt = uc.now().UTC().Add(uc.sessionTTL)
	return session, nil
}

func (uc *UseCase) RevokeSession(ctx context.Context, sessionID string) error {
	return usecase.StoreError("revoke session", uc.sessions.Delete(ctx, sessionID))
}

// SessionTTL is the lifetime given to new and refreshed sessions.
func (uc *UseCase) SessionTTL() time.Duration {
	return uc.sessionTTL
}
