package permissions

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/rbac"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/table"
	"github.com/rbac-console/rbac-console/internal/view"
)

const listPath = "/permissions"

// Handler manages permission endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder view.Responder
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, rbac: rbac, validator: view.NewValidator()}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Get("/{id}/roles", h.showRoles)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathPermissionEdit))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}/edit", h.updatePermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathRoleAssignPermissions))
		r.Post("/{id}/roles", h.addRole)
		r.Post("/{id}/roles/{roleID}/remove", h.removeRole)
	})
}

type listPageData struct {
	Query     table.ListQuery
	Resources []string
	Table     table.View
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := table.ParseListQuery(r.URL.Query(), table.DefaultListQuery(), apiclient.PermissionFilterKeys...)
	listing, err := h.service.List(ctx, q)
	if err != nil {
		h.responder.Fail(w, r, err, authctx.HomePath)
		return
	}

	ctrl := table.New(table.Config[apiclient.Permission]{
		PageSize: q.PageSize,
		RowID:    func(p apiclient.Permission) string { return p.ID },
	})
	ctrl.Update(table.Props[apiclient.Permission]{Rows: listing.Page.Permissions, Server: &listing.Page.Pagination})
	data := listPageData{
		Query:     q,
		Resources: listing.Resources,
		Table:     ctrl.View(columns(authctx.FromContext(ctx)), q.Link(listPath)),
	}
	h.responder.Render(w, r, http.StatusOK, "pages/permissions/list.html", "Permissions", data)
}

func columns(viewer *authctx.Provider) []table.Column[apiclient.Permission] {
	canEdit := viewer.Can("PERMISSION", "EDIT")
	return []table.Column[apiclient.Permission]{
		{Header: "Service", Cell: func(p apiclient.Permission) any { return p.Resource }},
		{Header: "Action", Cell: func(p apiclient.Permission) any { return p.Action }},
		{Header: "Description", Cell: func(p apiclient.Permission) any { return p.Description }},
		{Header: "Public", Cell: func(p apiclient.Permission) any { return p.IsPublic }},
		{Header: "", Cell: func(p apiclient.Permission) any {
			actions := view.Actions{{Label: "Roles", URL: permissionURL(p.ID, "roles")}}
			if canEdit {
				actions = append(actions, view.Action{Label: "Edit", URL: permissionURL(p.ID, "edit")})
			}
			return actions
		}},
	}
}

func permissionURL(id, action string) string {
	return listPath + "/" + id + "/" + action
}

type formPageData struct {
	Permission *apiclient.Permission
	Form       Form
	Errors     view.FormErrors
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	h.responder.Render(w, r, http.StatusOK, "pages/permissions/form.html", "Edit permission", formPageData{Permission: p, Form: FormFromPermission(p), Errors: view.FormErrors{}})
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	form := Form{
		Description: strings.TrimSpace(r.PostFormValue("description")),
		IsPublic:    r.PostFormValue("isPublic") == "true",
	}
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		err := h.service.Update(ctx, id, form)
		if err == nil {
			h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Permission updated")
			return
		}
		if !view.IsFormError(err) {
			h.responder.Fail(w, r, err, listPath)
			return
		}
		errs.AddAPIError(err)
	}
	p, err := h.service.Get(ctx, id)
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/permissions/form.html", "Edit permission", formPageData{Permission: p, Form: form, Errors: errs})
}

func (h *Handler) showRoles(w http.ResponseWriter, r *http.Request) {
	holders, err := h.service.Holders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	h.responder.Render(w, r, http.StatusOK, "pages/permissions/roles.html", "Permission roles", holders)
}

func (h *Handler) addRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	back := permissionURL(id, "roles")
	roleID := strings.TrimSpace(r.PostFormValue("roleId"))
	if roleID == "" {
		h.responder.Redirect(w, r, back, shared.FlashError, "Choose a role to add")
		return
	}
	if err := h.service.AddRole(r.Context(), id, roleID); err != nil {
		h.responder.Fail(w, r, err, back)
		return
	}
	h.responder.Redirect(w, r, back, shared.FlashSuccess, "Role added")
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := permissionURL(id, "roles")
	if err := h.service.RemoveRole(r.Context(), id, chi.URLParam(r, "roleID")); err != nil {
		h.responder.Fail(w, r, err, back)
		return
	}
	h.responder.Redirect(w, r, back, shared.FlashSuccess, "Role removed")
}
