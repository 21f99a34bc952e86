package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "u-42", "clerk@example.com", "Clerk", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u-42" || claims.Subject != "u-42" {
		t.Errorf("unexpected identity: user %q subject %q", claims.UserID, claims.Subject)
	}
	if claims.Email != "clerk@example.com" || claims.Name != "Clerk" || claims.Role != "admin" {
		t.Errorf("unexpected profile claims: %+v", claims)
	}
	if claims.Issuer != Issuer {
		t.Errorf("issuer = %q, want %q", claims.Issuer, Issuer)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < TokenExpiry-time.Minute || ttl > TokenExpiry {
		t.Errorf("unexpected lifetime %v", ttl)
	}

	again, _ := GenerateToken(testSecret, "u-42", "clerk@example.com", "Clerk", "admin")
	second, _ := ValidateToken(testSecret, again)
	if second.ID == claims.ID {
		t.Error("each token needs its own JTI for logout to work")
	}
}

func TestGenerateTokenEmptySecret(t *testing.T) {
	if _, err := GenerateToken("", "u", "e", "n", "user"); err == nil {
		t.Error("expected error signing with an empty secret")
	}
}

// sign builds a token by hand so tests can break one property at a time.
func sign(t *testing.T, method jwt.SigningMethod, key any, mutate func(*Claims)) string {
	t.Helper()
	now := time.Now()
	c := &Claims{
		UserID: "u-1",
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			Issuer:    Issuer,
			Subject:   "u-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	if mutate != nil {
		mutate(c)
	}
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	if err != nil {
		t.Fatalf("signing fixture: %v", err)
	}
	return s
}

func TestValidateTokenRejects(t *testing.T) {
	key := []byte(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), nil)},
		{"other hmac size", sign(t, jwt.SigningMethodHS512, key, nil)},
		{"unsigned", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, nil)},
		{"expired", sign(t, jwt.SigningMethodHS256, key, func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		})},
		{"no expiry", sign(t, jwt.SigningMethodHS256, key, func(c *Claims) { c.ExpiresAt = nil })},
		{"foreign issuer", sign(t, jwt.SigningMethodHS256, key, func(c *Claims) { c.Issuer = "someone-else" })},
		{"no jti", sign(t, jwt.SigningMethodHS256, key, func(c *Claims) { c.ID = "" })},
		{"subject mismatch", sign(t, jwt.SigningMethodHS256, key, func(c *Claims) { c.Subject = "u-2" })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(testSecret, tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
