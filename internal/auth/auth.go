// Package auth provides the JWT capability gate for the HTTP API. Token
// issuance lives with the outer platform; this service only verifies.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// Claims are the token claims the API cares about.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// JWTMiddleware returns the echo middleware verifying bearer tokens signed
// with secret. Requests matched by skipper pass through unauthenticated.
func JWTMiddleware(secret string, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		Skipper:    skipper,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(Claims)
		},
	})
}

// GenerateToken issues a signed token for the given user. Used by tests and
// local tooling; production tokens come from the platform's auth service.
func GenerateToken(userID, secret string, expiresIn time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(expiresIn)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// UserID extracts the authenticated user id from the request context. Empty
// when the route was skipped by the gate.
func UserID(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return ""
	}
	if claims.UserID != "" {
		return claims.UserID
	}
	return claims.Subject
}
