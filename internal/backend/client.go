// Package backend is the JSON client for the remote project-management API.
// Every call made on a user's behalf forwards the credentials found in ctx.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
)

// HeaderAPIKey carries API keys to the backend.
const HeaderAPIKey = "X-API-Key"

type Client struct {
	baseURL *url.URL
	base    http.RoundTripper
	timeout time.Duration
}

type Option func(*Client)

// WithTransport overrides the underlying transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend.New: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend.New: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL: u,
		base:    http.DefaultTransport,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns a copy of the backend root URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Transport returns a round tripper that attaches creds to every request.
func (c *Client) Transport(creds auth.Credentials) http.RoundTripper {
	if creds.AccessToken != "" {
		return &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"}),
			Base:   c.base,
		}
	}
	if creds.APIKey != "" {
		return apiKeyTransport{key: creds.APIKey, base: c.base}
	}
	return c.base
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set(HeaderAPIKey, t.key)
	return t.base.RoundTrip(r)
}

func (c *Client) httpClient(ctx context.Context) *http.Client {
	creds, _ := auth.CredentialsFromContext(ctx)
	return &http.Client{Transport: c.Transport(creds), Timeout: c.timeout}
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id,omitempty"`
}

func (c *Client) Login(ctx context.Context, tenantID uuid.UUID, email, password string) (*domain.Session, error) {
	req := loginRequest{Email: email, Password: password}
	if tenantID != uuid.Nil {
		req.TenantID = tenantID.String()
	}

	var s domain.Session
	if err := c.do(ctx, "backend.Login", http.MethodPost, "/auth/login", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// VerifyAPIKey asks the backend who owns key. A rejected key yields
// auth.ErrInvalidAPIKey.
func (c *Client) VerifyAPIKey(ctx context.Context, key string) (*domain.APIKeyIdentity, error) {
	ctx = auth.WithCredentials(ctx, auth.Credentials{APIKey: key})

	var id domain.APIKeyIdentity
	err := c.do(ctx, "backend.VerifyAPIKey", http.MethodGet, "/auth/api-keys/verify", nil, &id)
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("backend.VerifyAPIKey: %w", auth.ErrInvalidAPIKey)
		}
		return nil, err
	}
	return &id, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, "backend.Me", http.MethodGet, "/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	if err := c.do(ctx, "backend.ListProjects", http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, "backend.GetProject", http.MethodGet, "/projects/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// ListTasks returns every non-archived task of a project.
func (c *Client) ListTasks(ctx context.Context, projectID uuid.UUID) ([]domain.Task, error) {
	var out []domain.Task
	path := "/projects/" + projectID.String() + "/tasks"
	if err := c.do(ctx, "backend.ListTasks", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(out, func(t domain.Task) bool { return t.Status == domain.TaskStatusArchived }), nil
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, "backend.GetTask", http.MethodGet, "/tasks/"+id.String(), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

type statusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error {
	return c.do(ctx, "backend.UpdateTaskStatus", http.MethodPatch, "/tasks/"+id.String()+"/status", statusRequest{Status: status}, nil)
}

func (c *Client) ArchiveTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "backend.ArchiveTask", http.MethodPost, "/tasks/"+id.String()+"/archive", nil, nil)
}

func isAuthError(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrForbidden)
}
