package auth

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/taskreminder/domain"
	infra "github.com/fastygo/taskreminder/internal/infrastructure/sqlite"
	"github.com/fastygo/taskreminder/repository"
	sqliterepo "github.com/fastygo/taskreminder/repository/sqlite"
)

type fixture struct {
	uc       *UseCase
	users    repository.UserRepository
	tasks    repository.TaskRepository
	sessions repository.SessionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.db")
	logger := zaptest.NewLogger(t)

	require.NoError(t, infra.RunMigrations(path, logger))
	db, err := infra.Open(context.Background(), path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		users:    sqliterepo.NewUserRepository(db),
		tasks:    sqliterepo.NewTaskRepository(db),
		sessions: sqliterepo.NewSessionRepository(db, time.Hour),
	}
	f.uc = New(f.users, f.sessions, nil, time.Hour, logger)
	return f
}

// lossyUsers acknowledges updates without applying them.
type lossyUsers struct {
	repository.UserRepository
}

func (lossyUsers) Update(context.Context, *domain.User) error { return nil }

type recordingCanceller struct {
	users []int64
}

func (r *recordingCanceller) CancelRemindersForUser(_ context.Context, userID int64) error {
	r.users = append(r.users, userID)
	return nil
}

func TestHashPassword(t *testing.T) {
	hash := HashPassword("123456")
	assert.Equal(t, "8d969eef6ecad3c29a3a629280e686cf0c3f5d5a86aff3ca12020c923adc6c92", hash)
	assert.Len(t, hash, 64)
	assert.True(t, verifyPassword(hash, "123456"))
	assert.False(t, verifyPassword(hash, "1234567"))
}

func TestValidEmail(t *testing.T) {
	valid := []string{"alice@example.com", "a.b+c@sub.domain.org", " bob@x.io "}
	invalid := []string{"", "alice", "alice@", "@example.com", "alice@example", "al ice@example.com"}

	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		message  string
	}{
		{name: "bad email wins", username: "", email: "nope", password: "1", message: "Invalid email format"},
		{name: "short password", username: "", email: "a@example.com", password: "12345", message: "Password must be at least 6 characters"},
		{name: "blank username", username: "  ", email: "a@example.com", password: "123456", message: "Username cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Register(context.Background(), tt.username, tt.email, tt.password)
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.uc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Positive(t, user.ID)
	assert.True(t, user.IsLoggedIn)
	assert.Equal(t, HashPassword("secret1"), user.PasswordHash)
	assert.NotContains(t, user.PasswordHash, "secret1")

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLoggedIn)

	_, err = f.uc.Register(ctx, "alice2", "alice@example.com", "another1")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

// raceUsers hides existing rows from the pre-insert lookup, as a concurrent
// registration would.
type raceUsers struct {
	repository.UserRepository
}

func (raceUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func TestRegisterRaceHitsUniqueIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.uc.Register(ctx, "alice", "race@example.com", "secret1")
	require.NoError(t, err)

	racy := New(raceUsers{f.users}, f.sessions, nil, time.Hour, nil)
	_, err = racy.Register(ctx, "alice", "race@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	registered, err := f.uc.Register(ctx, "bob", "bob@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, f.uc.SignOut(ctx, registered.ID))

	_, err = f.uc.Authenticate(ctx, "bob@example.com", "wrong-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	stored, err := f.users.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLoggedIn, "failed login must not flip the flag")

	_, err = f.uc.Authenticate(ctx, "ghost@example.com", "hunter22")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.uc.Authenticate(ctx, "", "")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	user, err := f.uc.Authenticate(ctx, "bob@example.com", "hunter22")
	require.NoError(t, err)
	assert.True(t, user.IsLoggedIn)
}

func TestSignOutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.Register(ctx, "carol", "carol@example.com", "secret1")
	require.NoError(t, err)
	user, session, err := f.uc.Login(ctx, "carol@example.com", "secret1", nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.uc.SignOut(ctx, user.ID))
		stored, err := f.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsLoggedIn)
	}

	_, err = f.uc.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUpdateUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := f.uc.Register(ctx, "dave", "dave@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.uc.UpdateUsername(ctx, user.ID, "   ")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	updated, err := f.uc.UpdateUsername(ctx, user.ID, "David")
	require.NoError(t, err)
	assert.Equal(t, "David", updated.Username)

	_, err = f.uc.UpdateUsername(ctx, 9999, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	lossy := New(lossyUsers{f.users}, f.sessions, nil, time.Hour, nil)
	_, err = lossy.UpdateUsername(ctx, user.ID, "Dave again")
	assert.ErrorIs(t, err, ErrProfileNotSaved)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodePersistence))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := f.uc.Register(ctx, "erin", "erin@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.uc.ChangePassword(ctx, user.ID, "wrong", "newsecret")
	assert.ErrorIs(t, err, domain.ErrWrongPassword)

	_, err = f.uc.ChangePassword(ctx, user.ID, "secret1", "short")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = f.uc.ChangePassword(ctx, user.ID, "wrong", "abc")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "length is checked before the current password")
	assert.Equal(t, "New password must be at least 6 characters", err.Error())

	_, err = f.uc.ChangePassword(ctx, user.ID, "", "newsecret")
	assert.Equal(t, "Current password cannot be empty", err.Error())

	lossy := New(lossyUsers{f.users}, f.sessions, nil, time.Hour, nil)
	_, err = lossy.ChangePassword(ctx, user.ID, "secret1", "newsecret")
	assert.ErrorIs(t, err, ErrPasswordNotSaved)

	changed, err := f.uc.ChangePassword(ctx, user.ID, "secret1", "newsecret")
	require.NoError(t, err)
	assert.Equal(t, HashPassword("newsecret"), changed.PasswordHash)

	_, err = f.uc.Authenticate(ctx, "erin@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.uc.Authenticate(ctx, "erin@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestDeleteUserCancelsRemindersAndCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	canceller := &recordingCanceller{}
	f.uc.reminders = canceller

	user, err := f.uc.Register(ctx, "frank", "frank@example.com", "secret1")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := f.tasks.Insert(ctx, &domain.Task{
			UserID:   user.ID,
			TaskName: strings.Repeat("x", i+1),
			DueDate:  domain.NormalizeDueDate(time.Now().Add(time.Hour)),
			Priority: domain.PriorityNormal,
		})
		require.NoError(t, err)
	}

	require.NoError(t, f.uc.DeleteUser(ctx, user.ID))
	assert.Equal(t, []int64{user.ID}, canceller.users)

	_, err = f.users.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	tasks, err := f.tasks.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	assert.ErrorIs(t, f.uc.DeleteUser(ctx, user.ID), domain.ErrUserNotFound)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := f.uc.Register(ctx, "gina", "gina@example.com", "secret1")
	require.NoError(t, err)

	session, err := f.uc.CreateSession(ctx, user.ID, map[string]string{"ip": "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	got, err := f.uc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", got.Metadata["ip"])

	refreshed, err := f.uc.RefreshSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.ExpiresAt.Before(session.ExpiresAt))

	require.NoError(t, f.uc.RevokeSession(ctx, session.ID))
	_, err = f.uc.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = f.uc.CreateSession(ctx, 9999, nil)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestExpiredSessionIsDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := f.uc.Register(ctx, "hal", "hal@example.com", "secret1")
	require.NoError(t, err)

	session, err := f.uc.CreateSession(ctx, user.ID, nil)
	require.NoError(t, err)

	f.uc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.uc.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = f.sessions.Get(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
