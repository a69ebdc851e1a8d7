package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/pkg/httpcontext"
)

type mapSessions map[string]*domain.Session

func (m mapSessions) GetSession(_ context.Context, id string) (*domain.Session, error) {
	if s, ok := m[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func newSession(id string, userID int64) *domain.Session {
	return &domain.Session{ID: id, UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "taskreminder")
	token, err := tm.Issue(newSession("s1", 5))
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.UserID)
	assert.Equal(t, "s1", claims.SessionID)

	_, err = NewTokenManager("other", "taskreminder").Parse(token)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	_, err = NewTokenManager("secret", "someone-else").Parse(token)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	expired := newSession("s2", 5)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	token, err = tm.Issue(expired)
	require.NoError(t, err)
	_, err = tm.Parse(token)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	tm := NewTokenManager("secret", "taskreminder")
	sessions := mapSessions{"live": newSession("live", 9)}
	var seenUser int64
	handler := JWTAuth(tm, sessions, nil)(func(ctx *fasthttp.RequestCtx) {
		seenUser, _ = httpcontext.UserID(ctx)
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	liveToken, err := tm.Issue(sessions["live"])
	require.NoError(t, err)
	revokedToken, err := tm.Issue(newSession("revoked", 9))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: fasthttp.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: fasthttp.StatusUnauthorized},
		{name: "revoked session", header: "Bearer " + revokedToken, status: fasthttp.StatusUnauthorized},
		{name: "live session", header: "Bearer " + liveToken, status: fasthttp.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctx fasthttp.RequestCtx
			if tt.header != "" {
				ctx.Request.Header.Set("Authorization", tt.header)
			}
			handler(&ctx)
			assert.Equal(t, tt.status, ctx.Response.StatusCode())
		})
	}
	assert.Equal(t, int64(9), seenUser)
}
