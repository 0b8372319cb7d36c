package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/planboard/internal/api/v1"
	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
)

var testCookie = v1.SessionCookie{Name: "planboard_session", Secure: true} //nolint:gochecknoglobals // test fixture

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == testCookie.Name {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", testCookie.Name)
	return nil
}

// ---------------------------------------------------------------------------
// POST /auth/login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	user := domain.User{ID: uuid.New(), TenantID: tenantID, Email: "alice@acme.io", Name: "Alice", Role: domain.RoleMember}

	t.Run("happy_path_sets_session_cookie", func(t *testing.T) {
		t.Parallel()

		expires := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
		_, api := humatest.New(t)
		be := &mockBackend{
			loginFunc: func(_ context.Context, tid uuid.UUID, email, password string) (*domain.Session, error) {
				assert.Equal(t, tenantID, tid)
				assert.Equal(t, "alice@acme.io", email)
				assert.Equal(t, "secretpw1", password)
				return &domain.Session{AccessToken: "access-tok", ExpiresAt: expires, User: user}, nil
			},
		}
		v1.RegisterAuthRoutes(api, be, testCookie)

		resp := api.Post("/auth/login", map[string]any{
			"tenant_id": tenantID.String(),
			"email":     "alice@acme.io",
			"password":  "secretpw1",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var body struct {
			User        domain.User `json:"user"`
			AccessToken string      `json:"access_token"`
			ExpiresAt   time.Time   `json:"expires_at"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "access-tok", body.AccessToken)
		assert.Equal(t, user.ID, body.User.ID)
		assert.True(t, expires.Equal(body.ExpiresAt))

		c := sessionCookie(t, resp.Result())
		assert.Equal(t, "access-tok", c.Value)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, "/", c.Path)
	})

	t.Run("missing_expiry_uses_default_ttl", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		be := &mockBackend{
			loginFunc: func(context.Context, uuid.UUID, string, string) (*domain.Session, error) {
				return &domain.Session{AccessToken: "tok", User: user}, nil
			},
		}
		v1.RegisterAuthRoutes(api, be, testCookie)

		before := time.Now()
		resp := api.Post("/auth/login", map[string]any{
			"tenant_id": tenantID.String(),
			"email":     "alice@acme.io",
			"password":  "pw",
		})
		require.Equal(t, http.StatusOK, resp.Code)

		c := sessionCookie(t, resp.Result())
		assert.WithinDuration(t, before.Add(auth.AccessTokenTTL), c.Expires, 5*time.Second)
	})

	t.Run("invalid_credentials", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		be := &mockBackend{
			loginFunc: func(context.Context, uuid.UUID, string, string) (*domain.Session, error) {
				return nil, fmt.Errorf("backend.Login: %w", domain.ErrUnauthorized)
			},
		}
		v1.RegisterAuthRoutes(api, be, testCookie)

		resp := api.Post("/auth/login", map[string]any{
			"tenant_id": tenantID.String(),
			"email":     "alice@acme.io",
			"password":  "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Empty(t, resp.Result().Cookies())
	})

	t.Run("backend_down", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		be := &mockBackend{
			loginFunc: func(context.Context, uuid.UUID, string, string) (*domain.Session, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
		}
		v1.RegisterAuthRoutes(api, be, testCookie)

		resp := api.Post("/auth/login", map[string]any{
			"tenant_id": tenantID.String(),
			"email":     "alice@acme.io",
			"password":  "pw",
		})
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})

	t.Run("validation_error_short_email", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAuthRoutes(api, &mockBackend{}, testCookie)

		resp := api.Post("/auth/login", map[string]any{
			"tenant_id": tenantID.String(),
			"email":     "a",
			"password":  "pw",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// POST /auth/logout
// ---------------------------------------------------------------------------

func TestLogout(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	v1.RegisterAuthRoutes(api, &mockBackend{}, testCookie)

	resp := api.Post("/auth/logout")
	require.Equal(t, http.StatusNoContent, resp.Code)

	c := sessionCookie(t, resp.Result())
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}
