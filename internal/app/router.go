package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rbac-console/rbac-console/internal/auth"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/dashboard"
	"github.com/rbac-console/rbac-console/internal/observability"
	"github.com/rbac-console/rbac-console/internal/permissions"
	"github.com/rbac-console/rbac-console/internal/resourceperms"
	"github.com/rbac-console/rbac-console/internal/roles"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/users"
	"github.com/rbac-console/rbac-console/internal/view"
	"github.com/rbac-console/rbac-console/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Responder      view.Responder
	Auth           authctx.Middleware
	Metrics        *observability.Metrics

	DashboardHandler     *dashboard.Handler
	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	RolesHandler         *roles.Handler
	PermissionsHandler   *permissions.Handler
	ResourcePermsHandler *resourceperms.Handler
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	// Everything below needs the signed-in user resolved first.
	r.Group(func(r chi.Router) {
		r.Use(params.Auth.Handler)
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.ResourcePermsHandler != nil {
			r.Route("/resource-permissions", params.ResourcePermsHandler.MountRoutes)
		}
	})

	r.NotFound(params.Responder.NotFound)
	return r
}

// staticCacheHandler caches static assets in the browser for one hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
