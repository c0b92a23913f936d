// Package auth signs and verifies the session cookie. The cookie carries
// only a session ID; the upstream credential and user record stay server-side
// in the session store.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session cookie claims.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// CookieExpiry is the default session cookie lifetime.
const CookieExpiry = 24 * time.Hour

// SignCookie creates a signed cookie value for a session.
func SignCookie(secret, sessionID string) (string, error) {
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(CookieExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing cookie: %w", err)
	}
	return signed, nil
}

// VerifyCookie parses and validates a cookie value, returning the session ID.
func VerifyCookie(secret, value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing cookie: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("invalid cookie")
	}

	return claims.SessionID, nil
}
