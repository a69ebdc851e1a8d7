package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fastygo/taskreminder/domain"
)

// Claims carry the session a token was issued for.
type Claims struct {
	UserID    int64  `json:"user_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
}

func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token that expires with the session.
func (m *TokenManager) Issue(session *domain.Session) (string, error) {
	if session == nil {
		return "", domain.ErrInvalidPayload
	}
	claims := Claims{
		UserID:    session.UserID,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", session.UserID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies the signature, expiry and issuer of a token.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	if m.issuer != "" && !claims.VerifyIssuer(m.issuer, true) {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", errors.New("issuer mismatch"))
	}
	if claims.UserID <= 0 || claims.SessionID == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
