package resourceperms

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/table"
	"github.com/rbac-console/rbac-console/internal/view"
)

const listPath = "/resource-permissions"

// Handler manages resource grant endpoints. The console does not gate them;
// the API answers 403 for viewers it refuses.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder view.Responder
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder view.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, validator: view.NewValidator()}
}

// MountRoutes registers resource grant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listGrants)
	r.Post("/", h.createGrant)
	r.Post("/{id}/delete", h.deleteGrant)
}

type pageData struct {
	Query          table.ListQuery
	Table          table.View
	Form           Form
	Errors         view.FormErrors
	IdempotencyKey string
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r.URL.Query())
	h.render(w, r, http.StatusOK, q, pageData{Errors: view.FormErrors{}, IdempotencyKey: uuid.NewString()})
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := Form{
		UserID:       strings.TrimSpace(r.PostFormValue("userId")),
		ResourceType: strings.TrimSpace(r.PostFormValue("resourceType")),
		Action:       strings.TrimSpace(r.PostFormValue("action")),
		ResourceData: strings.TrimSpace(r.PostFormValue("resourceData")),
	}
	key := r.PostFormValue(shared.IdempotencyFormField)
	errs := view.Validate(h.validator, form)
	data, err := ParseResourceData(form.ResourceData)
	if err != nil {
		errs["resourceData"] = "Use key=value, one per line"
	}
	if !errs.Any() {
		err := h.service.Grant(r.Context(), key, form, data)
		if err == nil {
			h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Access granted")
			return
		}
		if !view.IsFormError(err) {
			h.responder.Fail(w, r, err, listPath)
			return
		}
		errs.AddAPIError(err)
	}
	h.render(w, r, http.StatusBadRequest, parseQuery(r.URL.Query()), pageData{Form: form, Errors: errs, IdempotencyKey: key})
}

func (h *Handler) deleteGrant(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.responder.Fail(w, r, err, listPath)
		return
	}
	h.responder.Redirect(w, r, listPath, shared.FlashSuccess, "Access revoked")
}

// render loads the grant page for q and writes it with the form state in data.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, q table.ListQuery, data pageData) {
	page, err := h.service.List(r.Context(), q)
	if err != nil {
		h.responder.Fail(w, r, err, authctx.HomePath)
		return
	}
	ctrl := table.New(table.Config[apiclient.ResourcePermission]{
		PageSize: q.PageSize,
		RowID:    func(g apiclient.ResourcePermission) string { return g.ID },
	})
	ctrl.Update(table.Props[apiclient.ResourcePermission]{Rows: page.ResourcePermissions, Server: &page.Pagination})
	data.Query = q
	data.Table = ctrl.View(columns(), q.Link(listPath))
	h.responder.Render(w, r, status, "pages/resourceperms/list.html", "Resource permissions", data)
}

func columns() []table.Column[apiclient.ResourcePermission] {
	return []table.Column[apiclient.ResourcePermission]{
		{Header: "User", Cell: func(g apiclient.ResourcePermission) any { return g.UserID }},
		{Header: "Resource type", Cell: func(g apiclient.ResourcePermission) any { return g.ResourceType }},
		{Header: "Action", Cell: func(g apiclient.ResourcePermission) any { return g.Action }},
		{Header: "Data", Cell: func(g apiclient.ResourcePermission) any { return FormatResourceData(g.ResourceData) }},
		{Header: "Created", Cell: func(g apiclient.ResourcePermission) any { return g.CreatedAt }},
		{Header: "", Cell: func(g apiclient.ResourcePermission) any {
			return view.Actions{{
				Label:   "Revoke",
				URL:     listPath + "/" + g.ID + "/delete",
				Method:  http.MethodPost,
				Confirm: "Revoke " + g.Action + " on " + g.ResourceType + " from " + g.UserID + "?",
				Danger:  true,
			}}
		}},
	}
}

func parseQuery(values url.Values) table.ListQuery {
	return table.ParseListQuery(values, table.DefaultListQuery(), apiclient.ResourcePermissionFilterKeys...)
}
