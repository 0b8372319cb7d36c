package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyTenantID contextKey = "tenant_id"
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUserRole contextKey = "role"
)

func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyTenantID).(uuid.UUID)
	return v, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(string)
	return v, ok
}

// Identity is the authenticated caller.
type Identity struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     string
}

// IdentityFromContext requires a non-nil tenant; user and role may be empty.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	tid, ok := TenantIDFromContext(ctx)
	if !ok || tid == uuid.Nil {
		return Identity{}, false
	}
	uid, _ := UserIDFromContext(ctx)
	role, _ := RoleFromContext(ctx)
	return Identity{TenantID: tid, UserID: uid, Role: role}, true
}

func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"valid tenant required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
