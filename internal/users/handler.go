package users

import (
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

const listPath = "/users"

// Handler manages user management endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathUserCreate))
		r.Get("/new", h.showCreateUserForm)
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathUserEdit))
		r.Get("/{id}/edit", h.showEditUserForm)
		r.Post("/{id}/edit", h.updateUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathUserLock))
		r.Get("/{id}/lock", h.showLockForm)
		r.Post("/{id}/lock", h.lockUser)
	})
	r.With(h.rbac.RequireAll(capability.PathUserUnlock)).Post("/{id}/unlock", h.unlockUser)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(capability.PathRoleChangeRole))
		r.Get("/{id}/roles", h.showRoles)
		r.Post("/{id}/roles", h.setRoles)
	})
}

type listPageData struct {
	Query table.ListQuery
	Table table.View
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := table.ParseListQuery(r.URL.Query(), table.DefaultListQuery(), "status")
	page, err := h.service.List(ctx, q)
	if err != nil {
		h.responder.Fail(w, r, err, authctx.HomePath)
		return
	}

	ctrl := table.New(table.Config[apiclient.User]{
		PageSize: q.PageSize,
		RowID:    func(u apiclient.User) string { return u.ID },
	})
	ctrl.Update(table.Props[apiclient.User]{Rows: page.Users, Server: &page.Pagination})
	data := listPageData{
		Query: q,
		Table: ctrl.View(columns(authctx.FromContext(ctx)), q.Link(listPath)),
	}
	h.responder.Render(w, r, http.StatusOK, "pages/users/list.html", "Users", data)
}

func columns(p *authctx.Provider) []table.Column[apiclient.User] {
	canEdit := p.Can("USER", "EDIT")
	canLock := p.Can("USER", "LOCK")
	canUnlock := p.Can("USER", "UNLOCK")
	canRoles := p.Can("ROLE", "CHANGE_ROLE")
	return []table.Column[apiclient.User]{
		{Header: "Name", Cell: func(u apiclient.User) any {
			if canEdit {
				return view.Link{Label: u.FullName, URL: userURL(u.ID, "edit")}
			}
			return u.FullName
		}},
		{Header: "Email", Cell: func(u apiclient.User) any { return u.Email }},
		{Header: "Phone", Cell: func(u apiclient.User) any { return u.Phone }},
		{Header: "Roles", Cell: func(u apiclient.User) any { return roleNames(u) }},
		{Header: "Status", Cell: func(u apiclient.User) any { return view.Badge{Text: u.Status, Kind: statusKind(u.Status)} }},
		{Header: "Created", Cell: func(u apiclient.User) any { return u.CreatedAt }},
		{Header: "", Cell: func(u apiclient.User) any {
			var actions view.Actions
			if canEdit {
				actions = append(actions, view.Action{Label: "Edit", URL: userURL(u.ID, "edit")})
			}
			if canRoles {
				actions = append(actions, view.Action{Label: "Roles", URL: userURL(u.ID, "roles")})
			}
			if u.Status == apiclient.UserLocked {
				if canUnlock {
					actions = append(actions, view.Action{Label: "Unlock", URL: userURL(u.ID, "unlock"), Method: http.MethodPost, Confirm: "Unlock " + u.FullName + "?"})
				}
			} else if canLock && !u.IsSystem {
				actions = append(actions, view.Action{Label: "Lock", URL: userURL(u.ID, "lock"), Danger: true})
			}
			return actions
		}},
	}
}

func userURL(id, action string) string {
	return listPath + "/" + id + "/" + action
}

type formPageData struct {
	Form           Form
	Errors         view.FormErrors
	Action         string
	IdempotencyKey string
	Editing        bool
}

func (h *Handler) showCreateUserForm(w http.ResponseWriter, r *http.Request) {
	data := formPageData{Errors: view.FormErrors{}, Action: listPath, IdempotencyKey: uuid.NewString()}
	h.responder.Render(w, r, http.StatusOK, "pages/users/form.html", "New user", data)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	form.Status = ""
	key := r.PostFormValue(shared.IdempotencyFormField)
	errs := view.Validate(h.validator, form)
	if form.Password == "" {
		errs["password"] = "This field is required"
	}
	if !errs.Any() {
		err := h.service.Create(r.Context(), key, form)
		if err == nil {
			h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "User created")
			return
		}
		if !view.IsFormError(err) {
			h.responder.Fail(w, r, err, listPath)
			return
		}
		errs.AddAPIError(err)
	}
	form.Password = ""
	data := formPageData{Form: form, Errors: errs, Action: listPath, IdempotencyKey: key}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/users/form.html", "New user", data)
}

func (h *Handler) showEditUserForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	data := formPageData{Form: FormFromUser(u), Errors: view.FormErrors{}, Action: userURL(id, "edit"), IdempotencyKey: uuid.NewString(), Editing: true}
	h.responder.Render(w, r, http.StatusOK, "pages/users/form.html", "Edit user", data)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	form := parseForm(r)
	form.Password = ""
	key := r.PostFormValue(shared.IdempotencyFormField)
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		err := h.service.Update(r.Context(), key, id, form)
		if err == nil {
			h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "User updated")
			return
		}
		if !view.IsFormError(err) {
			h.responder.Fail(w, r, err, listPath)
			return
		}
		errs.AddAPIError(err)
	}
	data := formPageData{Form: form, Errors: errs, Action: userURL(id, "edit"), IdempotencyKey: key, Editing: true}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/users/form.html", "Edit user", data)
}

type lockPageData struct {
	User   *apiclient.User
	Reason string
	Errors view.FormErrors
}

func (h *Handler) showLockForm(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	h.responder.Render(w, r, http.StatusOK, "pages/users/lock.html", "Lock user", lockPageData{User: u, Errors: view.FormErrors{}})
}

func (h *Handler) lockUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	form := LockForm{Reason: strings.TrimSpace(r.PostFormValue("reason"))}
	errs := view.Validate(h.validator, form)
	if !errs.Any() {
		err := h.service.Lock(ctx, id, form.Reason)
		if err == nil {
			h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "User locked")
			return
		}
		h.responder.Fail(w, r, err, listPath)
		return
	}
	u, err := h.service.Get(ctx, id)
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	h.responder.Render(w, r, http.StatusBadRequest, "pages/users/lock.html", "Lock user", lockPageData{User: u, Reason: form.Reason, Errors: errs})
}

func (h *Handler) unlockUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "User unlocked")
}

type rolesPageData struct {
	User     *apiclient.User
	Roles    []apiclient.Role
	Selected []string
	Errors   view.FormErrors
}

func (h *Handler) showRoles(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Assignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	data := rolesPageData{User: a.User, Roles: a.Roles, Selected: a.User.RoleIDs(), Errors: view.FormErrors{}}
	h.responder.Render(w, r, http.StatusOK, "pages/users/roles.html", "User roles", data)
}

func (h *Handler) setRoles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.SetRoles(r.Context(), id, r.PostForm["roleIds"]); err != nil {
		h.responder.Fail(w, r, err, userURL(id, "roles"))
		return
	}
	h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Roles updated")
}

func parseForm(r *http.Request) Form {
	return Form{
		FullName: strings.TrimSpace(r.PostFormValue("fullName")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Phone:    strings.TrimSpace(r.PostFormValue("phone")),
		Password: r.PostFormValue("password"),
		Address:  strings.TrimSpace(r.PostFormValue("address")),
		Bio:      strings.TrimSpace(r.PostFormValue("bio")),
		Status:   r.PostFormValue("status"),
	}
}
