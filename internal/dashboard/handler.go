// Package dashboard renders the signed-in landing page.
package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/view"
)

// Capability is one row of the capability table.
type Capability struct {
	Path    string
	Allowed bool
}

// Handler serves the dashboard.
type Handler struct {
	logger    *slog.Logger
	responder view.Responder
	taxonomy  capability.Category
}

// NewHandler builds Handler instance. A nil taxonomy uses the default one.
func NewHandler(logger *slog.Logger, responder view.Responder, taxonomy capability.Category) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if taxonomy == nil {
		taxonomy = capability.Default()
	}
	return &Handler{logger: logger, responder: responder, taxonomy: taxonomy}
}

// MountRoutes registers the dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

type pageData struct {
	Capabilities []Capability
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	provider := authctx.FromContext(r.Context())
	paths := h.taxonomy.Paths()
	data := pageData{Capabilities: make([]Capability, 0, len(paths))}
	for _, p := range paths {
		data.Capabilities = append(data.Capabilities, Capability{Path: p, Allowed: provider.CanPath(p)})
	}
	h.responder.Render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", data)
}
