package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/api/transport"
	"github.com/fastygo/taskreminder/domain"
	"github.com/fastygo/taskreminder/pkg/httpcontext"
	authUC "github.com/fastygo/taskreminder/usecase/auth"
)

// TokenIssuer signs access tokens for sessions.
type TokenIssuer interface {
	Issue(session *domain.Session) (string, error)
}

type AuthHandler struct {
	baseHandler
	uc     *authUC.UseCase
	tokens TokenIssuer
}

func NewAuthHandler(uc *authUC.UseCase, tokens TokenIssuer, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		tokens:      tokens,
	}
}

// @Summary Register a new account
// @Tags auth
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Register(stdCtx, req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	session, err := h.uc.CreateSession(stdCtx, user.ID, httpcontext.Metadata(stdCtx))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSession(ctx, http.StatusCreated, user, session)
}

// @Summary Log in with email and password
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, session, err := h.uc.Login(stdCtx, req.Email, req.Password, httpcontext.Metadata(stdCtx))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSession(ctx, http.StatusOK, user, session)
}

// @Summary Extend the current session
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	sessionID, ok := httpcontext.SessionID(ctx)
	if !ok {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.NewError(string(domain.ErrCodeUnauthorized), "missing session", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.RefreshSession(stdCtx, sessionID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSession(ctx, http.StatusOK, nil, session)
}

// @Summary Sign out and revoke every session
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	userID, ok := h.userID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SignOut(stdCtx, userID); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *AuthHandler) respondSession(ctx *fasthttp.RequestCtx, status int, user *domain.User, session *domain.Session) {
	token, err := h.tokens.Issue(session)
	if err != nil {
		h.logger.Error("failed to sign token", zap.String("session_id", session.ID), zap.Error(err))
		h.respondJSON(ctx, http.StatusInternalServerError, transport.NewError(string(domain.ErrCodeInternal), "internal error", nil))
		return
	}
	h.respondSuccess(ctx, status, transport.AuthResponse{
		User:      user,
		Token:     token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	})
}
