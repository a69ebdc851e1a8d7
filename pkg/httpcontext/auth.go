package httpcontext

import "github.com/valyala/fasthttp"

// User values set by the auth middleware on the request.
const (
	UserIDKey    = "auth.user_id"
	SessionIDKey = "auth.session_id"
)

// SetAuth records the authenticated principal on the request.
func SetAuth(ctx *fasthttp.RequestCtx, userID int64, sessionID string) {
	ctx.SetUserValue(UserIDKey, userID)
	ctx.SetUserValue(SessionIDKey, sessionID)
}

// UserID returns the authenticated user, or false on public routes.
func UserID(ctx *fasthttp.RequestCtx) (int64, bool) {
	id, ok := ctx.UserValue(UserIDKey).(int64)
	return id, ok && id > 0
}

func SessionID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, ok := ctx.UserValue(SessionIDKey).(string)
	return id, ok && id != ""
}
