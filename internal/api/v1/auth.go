package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
)

// SessionCookie configures the browser session cookie carrying the access token.
type SessionCookie struct {
	Name   string
	Secure bool
}

func (c SessionCookie) issue(token string, expires time.Time) http.Cookie {
	return http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c SessionCookie) clear() http.Cookie {
	return http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

type LoginInput struct {
	Body struct {
		TenantID uuid.UUID `json:"tenant_id" doc:"Tenant ID"`
		Email    string    `json:"email" minLength:"3" maxLength:"255" doc:"User email"`
		Password string    `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type LoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		User        domain.User `json:"user"`
		AccessToken string      `json:"access_token"` //nolint:gosec // G117: auth response DTO
		ExpiresAt   time.Time   `json:"expires_at"`
	}
}

type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

func RegisterAuthRoutes(api huma.API, be Backend, cookie SessionCookie) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with email and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		sess, err := be.Login(ctx, input.Body.TenantID, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error401Unauthorized("invalid email or password")
			}
			return nil, backendError(err, "tenant", "login failed")
		}

		expires := sess.ExpiresAt
		if expires.IsZero() {
			expires = time.Now().Add(auth.AccessTokenTTL)
		}

		out := &LoginOutput{SetCookie: cookie.issue(sess.AccessToken, expires)}
		out.Body.User = sess.User
		out.Body.AccessToken = sess.AccessToken
		out.Body.ExpiresAt = expires
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "Clear the session cookie",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusNoContent,
	}, func(_ context.Context, _ *struct{}) (*LogoutOutput, error) {
		return &LogoutOutput{SetCookie: cookie.clear()}, nil
	})
}
