// Package authtest signs tokens shaped like the backend's, for tests.
package authtest

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/auth"
)

// AccessToken signs an HS256 access token. A negative ttl yields an expired token.
func AccessToken(secret string, tenantID, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	return sign(secret, tenantID, userID, role, auth.TokenTypeAccess, ttl)
}

// RefreshToken signs an HS256 refresh token.
func RefreshToken(secret string, tenantID, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	return sign(secret, tenantID, userID, role, auth.TokenTypeRefresh, ttl)
}

func sign(secret string, tenantID, userID uuid.UUID, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    auth.Issuer,
		},
		TenantID:  tenantID.String(),
		UserID:    userID.String(),
		Role:      role,
		TokenType: tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("authtest.sign: %w", err)
	}
	return signed, nil
}
