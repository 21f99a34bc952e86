package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every session token and required on validation.
const Issuer = "storekeeper"

// TokenExpiry is the default token lifetime.
const TokenExpiry = 7 * 24 * time.Hour

// ErrInvalidToken wraps every validation failure.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the session payload. The user's role is re-read from the
// database on each request, so Role here is informational.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 session token with a fresh JTI.
func GenerateToken(secret, userID, email, name, role string) (string, error) {
	if secret == "" {
		return "", errors.New("signing token: empty secret")
	}
	issued := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(TokenExpiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, issuer and expiry and returns the claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidToken)
	}
	return claims, nil
}
