package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/planboard/internal/api/v1"
	"github.com/gosuda/planboard/internal/api/ws"
	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/config"
	"github.com/gosuda/planboard/internal/notify"
	"github.com/gosuda/planboard/internal/server/middleware"
	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

// loginRate bounds unauthenticated auth calls per client IP.
const (
	loginRate  = 5
	loginBurst = 10
)

// Backend is the remote API as used by the handlers and the proxy.
// *backend.Client satisfies this interface.
type Backend interface {
	v1.Backend
	BaseURL() *url.URL
	Transport(creds auth.Credentials) http.RoundTripper
}

// Deps are the collaborators the server wires into its routes. APIKeys,
// PubSub, Store and WebAssets are optional.
type Deps struct {
	Backend   Backend
	Tasks     v1.TaskReader
	APIKeys   middleware.APIKeyVerifier
	PubSub    *redisstore.PubSub
	Store     v1.DataStore
	Notifier  notify.Sink
	WebAssets fs.FS
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	wsHub      *ws.Hub
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds background work
// such as rate limiter sweeping.
// When deps.WebAssets is set, the dashboard SPA is served on all unmatched
// routes (embedded via go:embed for single-binary distribution).
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderAPIKey, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hubOpts := []ws.HubOption{
		ws.WithTeamNotifier(deps.Notifier),
		ws.WithBatchConcurrency(cfg.Batch.Concurrency),
		ws.WithOriginPatterns(originPatterns(cfg.Server.CORSOrigins)),
	}
	if deps.Store != nil {
		hubOpts = append(hubOpts, ws.WithHistory(deps.Store))
	}
	hub := ws.NewHub(deps.PubSub, deps.Tasks, deps.Backend, hubOpts...)

	s := &Server{
		router: router,
		wsHub:  hub,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	authenticate := middleware.Auth(cfg.JWT.Secret, cfg.JWT.CookieName, deps.APIKeys)
	tenantLimit := middleware.RateLimit(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst)

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated group for login/logout.
	// 2. Authenticated group for all other endpoints.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, loginRate, loginBurst))

			authConfig := huma.DefaultConfig("planboard Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, deps, cfg)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireTenant())
			r.Use(tenantLimit)

			apiConfig := huma.DefaultConfig("planboard API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, deps, cfg)
		})
	})

	// Pass-through CRUD for everything the BFF does not model itself.
	router.Route(proxyPrefix, func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireTenant())
		r.Use(tenantLimit)
		registerProxyRoutes(r, newBackendProxy(deps.Backend))
	})

	// WebSocket routes.
	router.Route("/ws", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireTenant())
		r.Use(middleware.RequirePermission(auth.PermBoardView))
		registerWSRoutes(r, hub)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Serve embedded dashboard SPA on all unmatched routes.
	// This must be the last route registered so API/WS routes take priority.
	if deps.WebAssets != nil {
		router.NotFound(spaFileServer(deps.WebAssets).ServeHTTP)
		log.Info().Msg("embedded dashboard enabled")
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// originPatterns converts CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}
