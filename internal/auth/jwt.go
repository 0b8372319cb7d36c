package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of a backend-issued access token.
type Claims struct {
	jwt.RegisteredClaims
	TenantID  string `json:"tid"`
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	TokenType string `json:"typ"` // "access" or "refresh"
}

// Token types carried in Claims.TokenType by the backend.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Issuer is the iss claim the backend sets on dashboard tokens.
const Issuer = "planboard"

// AccessTokenTTL is the session lifetime assumed when the backend does not
// report one.
const AccessTokenTTL = 8 * time.Hour

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// IsAccess reports whether the claims belong to an access token. Tokens
// without a type are treated as access tokens.
func (c *Claims) IsAccess() bool {
	return c.TokenType == "" || c.TokenType == TokenTypeAccess
}

// IDs parses the tenant and user ids carried by the claims.
func (c *Claims) IDs() (tenantID, userID uuid.UUID, err error) {
	tenantID, err = uuid.Parse(c.TenantID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("auth.Claims.IDs: tenant: %w", ErrInvalidToken)
	}
	userID, err = uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("auth.Claims.IDs: user: %w", ErrInvalidToken)
	}
	return tenantID, userID, nil
}
