package roles

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/rbac"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/table"
	"github.com/rbac-console/rbac-console/internal/view"
)

const (
	listPath       = "/roles"
	draftKeyPrefix = "role_permissions:"
)

// Selection form actions on the assign-permissions page.
const (
	actionKeep  = "keep"
	actionReset = "reset"
	actionSave  = "save"
)

// Handler manages role management endpoints.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathRoleCreate))
		r.Get("/new", h.showCreateRoleForm)
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathRoleEdit))
		r.Get("/{id}/edit", h.showEditRoleForm)
		r.Post("/{id}/edit", h.updateRole)
	})
	r.With(h.rbac.RequireAll(capability.PathRoleDelete)).Post("/{id}/delete", h.deleteRole)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathRoleAssignPermissions))
		r.Get("/{id}/permissions", h.showPermissions)
		r.Post("/{id}/permissions", h.updatePermissions)
	})
}

type listPageData struct {
	Query table.ListQuery
	Table table.View
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := table.ParseListQuery(r.URL.Query(), table.DefaultListQuery(), "status")
	roles, err := h.service.List(ctx, apiclient.RoleFilter{Search: q.Search, Status: q.Filter("status")})
	if err != nil {
		h.responder.Fail(w, r, err, authctx.HomePath)
		return
	}

	// Roles arrive in one piece, so the table pages them in memory.
	ctrl := table.New(table.Config[apiclient.Role]{
		PageSize: q.PageSize,
		RowID:    func(role apiclient.Role) string { return role.ID },
	})
	ctrl.SetPage(q.Page - 1)
	ctrl.Update(table.Props[apiclient.Role]{Rows: roles})
	data := listPageData{
		Query: q,
		Table: ctrl.View(columns(authctx.FromContext(ctx)), q.Link(listPath)),
	}
	h.responder.Render(w, r, http.StatusOK, "pages/roles/list.html", "Roles", data)
}

func columns(p *authctx.Provider) []table.Column[apiclient.Role] {
	canEdit := p.Can("ROLE", "EDIT")
	canDelete := p.Can("ROLE", "DELETE")
	canAssign := p.Can("ROLE", "ASSIGN_PERMISSIONS")
	return []table.Column[apiclient.Role]{
		{Header: "Name", Cell: func(role apiclient.Role) any {
			if canEdit {
				return view.Link{Label: role.Name, URL: roleURL(role.ID, "edit")}
			}
			return role.Name
		}},
		{Header: "Description", Cell: func(role apiclient.Role) any { return role.Description }},
		{Header: "Status", Cell: func(role apiclient.Role) any {
			if role.Status == "" {
				return nil
			}
			return view.Badge{Text: role.Status, Kind: statusKind(role.Status)}
		}},
		{Header: "Created", Cell: func(role apiclient.Role) any { return role.CreatedAt }},
		{Header: "", Cell: func(role apiclient.Role) any {
			var actions view.Actions
			if canEdit {
				actions = append(actions, view.Action{Label: "Edit", URL: roleURL(role.ID, "edit")})
			}
			if canAssign {
				actions = append(actions, view.Action{Label: "Permissions", URL: roleURL(role.ID, "permissions")})
			}
			if canDelete {
				actions = append(actions, view.Action{Label: "Delete", URL: roleURL(role.ID, "delete"), Method: http.MethodPost, Confirm: "Delete role " + role.Name + "?", Danger: true})
			}
			return actions
		}},
	}
}

func roleURL(id, action string) string {
	return listPath + "/" + id + "/" + action
}

type formPageData struct {
	Form           Form
	Errors         view.FormErrors
	Action         string
	IdempotencyKey string
}

func (h *Handler) showCreateRoleForm(w http.ResponseWriter, r *http.Request) {
	data := formPageData{Form: Form{Status: apiclient.RoleActive}, Errors: view.FormErrors{}, Action: listPath, IdempotencyKey: uuid.NewString()}
	h.responder.Render(w, r, http.StatusOK, "pages/roles/form.html", "New role", data)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	key := r.PostFormValue(shared.IdempotencyFormField)
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		err := h.service.Create(r.Context(), key, form)
		switch {
		case err == nil:
			h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Role created")
			return
		case errors.Is(err, ErrNameTaken):
			errs["name"] = "A role with this name already exists"
		case view.IsFormError(err):
			errs.AddAPIError(err)
		default:
			h.responder.Fail(w, r, err, listPath)
			return
		}
	}
	data := formPageData{Form: form, Errors: errs, Action: listPath, IdempotencyKey: key}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/roles/form.html", "New role", data)
}

func (h *Handler) showEditRoleForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	data := formPageData{Form: FormFromRole(role), Errors: view.FormErrors{}, Action: roleURL(id, "edit"), IdempotencyKey: uuid.NewString()}
	h.responder.Render(w, r, http.StatusOK, "pages/roles/form.html", "Edit role", data)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	form := parseForm(r)
	key := r.PostFormValue(shared.IdempotencyFormField)
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		err := h.service.Update(r.Context(), key, id, form)
		if err == nil {
			h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Role updated")
			return
		}
		if !view.IsFormError(err) {
			h.responder.Fail(w, r, err, listPath)
			return
		}
		errs.AddAPIError(err)
	}
	data := formPageData{Form: form, Errors: errs, Action: roleURL(id, "edit"), IdempotencyKey: key}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/roles/form.html", "Edit role", data)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Delete(draftKeyPrefix + id)
	}
	h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Role deleted")
}

type permissionsPageData struct {
	Role           *apiclient.Role
	Resources      []string
	SelectedCount  int
	Query          table.ListQuery
	Table          table.View
	IdempotencyKey string
	ReturnTo       string
}

func (h *Handler) showPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	base := roleURL(id, "permissions")
	q := table.ParseListQuery(r.URL.Query(), table.DefaultListQuery(), "resource")

	draft, err := h.draft(ctx, id)
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	pv, err := h.service.Permissions(ctx, id, q)
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}

	ctrl := table.New(table.Config[apiclient.Permission]{
		PageSize:  q.PageSize,
		RowID:     func(p apiclient.Permission) string { return p.ID },
		Selection: h.selection(ctx, id, &draft),
	})
	ctrl.Update(table.Props[apiclient.Permission]{Rows: pv.Permissions.Permissions, Server: &pv.Permissions.Pagination})
	data := permissionsPageData{
		Role:           pv.Role,
		Resources:      pv.Resources,
		SelectedCount:  draft.Count(),
		Query:          q,
		Table:          ctrl.View(permissionColumns(), q.Link(base)),
		IdempotencyKey: uuid.NewString(),
		ReturnTo:       r.URL.RequestURI(),
	}
	h.responder.Render(w, r, http.StatusOK, "pages/roles/permissions.html", "Assign permissions", data)
}

func permissionColumns() []table.Column[apiclient.Permission] {
	return []table.Column[apiclient.Permission]{
		{Header: "Service", Cell: func(p apiclient.Permission) any { return p.Resource }},
		{Header: "Action", Cell: func(p apiclient.Permission) any { return p.Action }},
		{Header: "Description", Cell: func(p apiclient.Permission) any { return p.Description }},
		{Header: "Public", Cell: func(p apiclient.Permission) any { return p.IsPublic }},
	}
}

// updatePermissions applies the checkboxes of the posted page to the draft,
// then keeps, resets or saves it.
func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	returnTo := permissionsReturn(id, r.PostFormValue("return"))

	draft, err := h.draft(ctx, id)
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	selection := h.selection(ctx, id, &draft)
	checked := make(map[string]bool, len(r.PostForm["selected"]))
	for _, key := range r.PostForm["selected"] {
		checked[key] = true
	}
	// Only rows that were on the posted page change; the rest of the draft
	// stays as it was.
	for _, key := range r.PostForm["visible"] {
		selection.Set(key, checked[key])
	}

	switch r.PostFormValue("action") {
	case actionReset:
		h.dropDraft(ctx, id)
		h.responder.Redirect(w, r, returnTo, shared.FlashSuccess, "Selection reset")
	case actionSave:
		err := h.service.SavePermissions(ctx, r.PostFormValue(shared.IdempotencyFormField), id, draft)
		h.dropDraft(ctx, id)
		if err != nil {
			h.responder.Fail(w, r, err, returnTo)
			return
		}
		h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Permissions updated")
	default:
		h.responder.Redirect(w, r, returnTo, "", "")
	}
}

// draft returns the role's selection draft, seeding it from the API when the
// session has none.
func (h *Handler) draft(ctx context.Context, roleID string) (Draft, error) {
	sess := shared.SessionFromContext(ctx)
	var d Draft
	if sess != nil {
		ok, err := sess.GetJSON(draftKeyPrefix+roleID, &d)
		if err != nil {
			h.logger.WarnContext(ctx, "discard unreadable permission draft", slog.String("role_id", roleID), slog.Any("error", err))
		}
		if ok && err == nil {
			if d.State == nil {
				d.State = table.SelectionState{}
			}
			return d, nil
		}
	}
	granted, err := h.service.Granted(ctx, roleID)
	if err != nil {
		return Draft{}, err
	}
	d = NewDraft(granted)
	h.storeDraft(ctx, roleID, d)
	return d, nil
}

// selection binds a controlled table selection to the draft so every change
// is written back to the session.
func (h *Handler) selection(ctx context.Context, roleID string, d *Draft) *table.Selection {
	return table.Controlled(
		func() table.SelectionState { return d.State },
		func(next table.SelectionState) {
			d.State = next
			h.storeDraft(ctx, roleID, *d)
		},
	)
}

func (h *Handler) storeDraft(ctx context.Context, roleID string, d Draft) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return
	}
	if err := sess.SetJSON(draftKeyPrefix+roleID, d); err != nil {
		h.logger.WarnContext(ctx, "store permission draft", slog.String("role_id", roleID), slog.Any("error", err))
	}
}

func (h *Handler) dropDraft(ctx context.Context, roleID string) {
	if sess := shared.SessionFromContext(ctx); sess != nil {
		sess.Delete(draftKeyPrefix + roleID)
	}
}

// permissionsReturn accepts only links back to the same role's page.
func permissionsReturn(roleID, target string) string {
	base := roleURL(roleID, "permissions")
	rest, ok := strings.CutPrefix(target, base)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "?")) {
		return base
	}
	return target
}

func parseForm(r *http.Request) Form {
	return Form{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Status:      r.PostFormValue("status"),
	}
}
