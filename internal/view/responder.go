package view

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
)

// Error page templates.
const (
	ForbiddenPage = "pages/errors/403.html"
	NotFoundPage  = "pages/errors/404.html"
)

// Responder bundles what every page handler needs to answer a request.
type Responder struct {
	Templates *Engine
	CSRF      *shared.CSRFManager
	Logger    *slog.Logger
}

// Data assembles the shared template values for r.
func (p Responder) Data(r *http.Request, title string, data any) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	var flash *shared.FlashMessage
	if sess != nil {
		if p.CSRF != nil {
			csrfToken, _ = p.CSRF.EnsureToken(r.Context(), sess)
		}
		flash = sess.PopFlash()
	}
	return TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Auth:        authctx.FromContext(r.Context()),
		Data:        data,
	}
}

// Render writes a page.
func (p Responder) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := p.Templates.RenderStatus(w, status, name, p.Data(r, title, data)); err != nil {
		p.logger().ErrorContext(r.Context(), "render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Redirect queues a flash message and redirects with 303.
func (p Responder) Redirect(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// Forbidden renders the 403 page.
func (p Responder) Forbidden(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusForbidden, ForbiddenPage, "Access denied", nil)
}

// NotFound renders the 404 page.
func (p Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusNotFound, NotFoundPage, "Page not found", nil)
}

// Fail answers a request whose API call failed. Rejected tokens drop the
// cached profile so the next request bootstraps again; 403 and 404 render
// their pages; anything else flashes the message and redirects to fallback.
func (p Responder) Fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		authctx.ClearProfile(shared.SessionFromContext(ctx))
		http.Redirect(w, r, authctx.HomePath, http.StatusSeeOther)
	case errors.Is(err, shared.ErrForbidden):
		p.Forbidden(w, r)
	case errors.Is(err, shared.ErrNotFound):
		p.NotFound(w, r)
	case errors.Is(err, shared.ErrIdempotencyConflict):
		if fallback == "" {
			fallback = authctx.HomePath
		}
		p.Redirect(w, r, fallback, shared.FlashError, "This form was already submitted")
	default:
		p.logger().WarnContext(ctx, "api call failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		if fallback == "" || (fallback == r.URL.Path && r.Method == http.MethodGet) {
			fallback = authctx.HomePath
		}
		p.Redirect(w, r, fallback, shared.FlashError, apiclient.Message(err))
	}
}

func (p Responder) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
