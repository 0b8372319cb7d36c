package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidAPIKey is returned when the backend rejects an API key.
var ErrInvalidAPIKey = errors.New("auth: invalid API key")

const (
	apiKeyPrefix    = "pb_"
	apiKeyPrefixLen = 8
)

// HashAPIKey returns the hex SHA-256 of a raw key. Raw keys are never used as
// cache keys or log fields.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// MaskAPIKey keeps the lookup prefix of a key and hides the rest.
func MaskAPIKey(raw string) string {
	if len(raw) <= apiKeyPrefixLen {
		return strings.Repeat("*", len(raw))
	}
	return raw[:apiKeyPrefixLen] + strings.Repeat("*", 8)
}

// LooksLikeAPIKey is a cheap syntactic check done before asking the backend.
func LooksLikeAPIKey(raw string) bool {
	return strings.HasPrefix(raw, apiKeyPrefix) && len(raw) > apiKeyPrefixLen
}
