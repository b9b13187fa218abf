package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	signed, expiresAt, err := GenerateToken("user-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("token already expired")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse token: valid=%v err=%v", token != nil && token.Valid, err)
	}
	if claims.UserID != "user-1" || claims.Subject != "user-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestGenerateTokenWrongSecret(t *testing.T) {
	signed, _, err := GenerateToken("user-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	_, err = jwt.ParseWithClaims(signed, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte("other"), nil
	})
	if err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}
