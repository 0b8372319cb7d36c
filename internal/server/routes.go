package server

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/planboard/internal/api/v1"
	"github.com/gosuda/planboard/internal/api/ws"
	"github.com/gosuda/planboard/internal/config"
	"github.com/gosuda/planboard/internal/domain"
	"github.com/gosuda/planboard/internal/server/middleware"
)

func registerAuthRoutes(api huma.API, deps Deps, cfg *config.Config) {
	v1.RegisterAuthRoutes(api, deps.Backend, v1.SessionCookie{
		Name:   cfg.JWT.CookieName,
		Secure: cfg.JWT.CookieSecure,
	})
}

func registerAPIRoutes(api huma.API, deps Deps, cfg *config.Config) {
	v1.RegisterMeRoutes(api, deps.Backend)
	v1.RegisterProjectRoutes(api, deps.Backend)
	v1.RegisterBoardRoutes(api, deps.Tasks)
	v1.RegisterTaskRoutes(api, deps.Backend, deps.Tasks)
	v1.RegisterStatsRoutes(api, deps.Tasks)
	v1.RegisterBatchRoutes(api, deps.Backend, deps.Tasks, deps.Store, v1.BatchOptions{
		Notifier:    deps.Notifier,
		Concurrency: cfg.Batch.Concurrency,
	})
}

func registerProxyRoutes(r chi.Router, proxy http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(guardMutations(middleware.RequireRole(domain.RoleAdmin, domain.RoleMember)))
		r.Handle("/*", proxy)
	})
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board/{projectID}", hub.ServeBoard)
}

// guardMutations applies guard to every request that is not a safe method.
func guardMutations(guard func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				guarded.ServeHTTP(w, r)
			}
		})
	}
}
