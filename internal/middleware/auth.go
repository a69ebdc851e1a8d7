package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/api/transport"
	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/pkg/httpcontext"
)

// SessionResolver loads a live session by id.
type SessionResolver interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// JWTAuth accepts a bearer token only while the session it names is still live.
func JWTAuth(tokens *TokenManager, sessions SessionResolver, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx, "missing bearer token")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				logger.Warn("invalid jwt token", zap.Error(err))
				unauthorized(ctx, "invalid token")
				return
			}

			lookupCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			session, err := sessions.GetSession(lookupCtx, claims.SessionID)
			cancel()
			if err != nil || session.UserID != claims.UserID {
				if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
					logger.Error("session lookup failed", zap.Error(err))
				}
				unauthorized(ctx, "session expired or revoked")
				return
			}

			httpcontext.SetAuth(ctx, session.UserID, session.ID)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx, msg string) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	body, _ := json.Marshal(transport.NewError(string(domain.ErrCodeUnauthorized), msg, nil))
	ctx.SetBody(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return header
}
