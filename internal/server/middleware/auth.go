package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
)

// HeaderAPIKey is the request header carrying API keys.
const HeaderAPIKey = "X-API-Key"

// APIKeyVerifier resolves an API key to its owner.
type APIKeyVerifier interface {
	VerifyAPIKey(ctx context.Context, key string) (*domain.APIKeyIdentity, error)
}

// Auth accepts, in order, a bearer token, the session cookie, or an API key.
// Tokens are backend-issued JWTs verified locally with the shared secret.
// On success the identity and the raw credentials are stored in the context
// so outbound backend calls can forward them.
func Auth(jwtSecret, cookieName string, keys APIKeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Try Bearer token first.
			if tok := extractBearer(r); tok != "" {
				if ctx, ok := authenticateJWT(r.Context(), tok, jwtSecret); ok {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			// Browsers (and websocket upgrades) carry the session cookie.
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				if ctx, ok := authenticateJWT(r.Context(), c.Value, jwtSecret); ok {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			// Try API key.
			if key := r.Header.Get(HeaderAPIKey); key != "" && keys != nil {
				if ctx, ok := authenticateAPIKey(r.Context(), key, keys); ok {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}

func authenticateJWT(ctx context.Context, tokenStr, secret string) (context.Context, bool) {
	claims, err := auth.ValidateToken(secret, tokenStr)
	if err != nil || !claims.IsAccess() {
		return ctx, false
	}

	tenantID, userID, err := claims.IDs()
	if err != nil {
		return ctx, false
	}

	ctx = withIdentity(ctx, tenantID, userID, claims.Role)
	ctx = auth.WithCredentials(ctx, auth.Credentials{AccessToken: tokenStr})
	return ctx, true
}

func authenticateAPIKey(ctx context.Context, rawKey string, keys APIKeyVerifier) (context.Context, bool) {
	id, err := keys.VerifyAPIKey(ctx, rawKey)
	if err != nil {
		log.Debug().Err(err).Str("api_key", auth.MaskAPIKey(rawKey)).Msg("auth: api key rejected")
		return ctx, false
	}

	role := id.Role
	if role == "" {
		role = domain.RoleMember
	}

	ctx = withIdentity(ctx, id.TenantID, id.UserID, role)
	ctx = auth.WithCredentials(ctx, auth.Credentials{APIKey: rawKey})
	return ctx, true
}

func withIdentity(ctx context.Context, tenantID, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyTenantID, tenantID)
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, ContextKeyUserRole, role)
	return ctx
}
