package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role names as issued by the backend.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// Session is the result of a successful backend login.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// APIKeyIdentity is what the backend reports for a valid API key.
type APIKeyIdentity struct {
	KeyID    uuid.UUID  `json:"key_id"`
	TenantID uuid.UUID  `json:"tenant_id"`
	UserID   uuid.UUID  `json:"user_id"`
	Role     string     `json:"role"`
	Scopes   []string   `json:"scopes,omitempty"`
	Expires  *time.Time `json:"expires_at,omitempty"`
}
