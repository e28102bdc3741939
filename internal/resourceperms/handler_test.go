package resourceperms_test

import (
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbac-console/rbac-console/internal/consoletest"
	"github.com/rbac-console/rbac-console/internal/resourceperms"
	"github.com/rbac-console/rbac-console/internal/shared"
	_ "github.com/rbac-console/rbac-console/testing"
)

type fakeGrantsAPI struct {
	mu      sync.Mutex
	calls   []string
	created []map[string]any
	query   url.Values
}

func (f *fakeGrantsAPI) snapshot() (url.Values, []string, []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query, append([]string(nil), f.calls...), append([]map[string]any(nil), f.created...)
}

func (f *fakeGrantsAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /resource-permissions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.query = r.URL.Query()
		f.mu.Unlock()
		consoletest.WriteJSON(w, http.StatusOK, map[string]any{
			"resourcePermissions": []map[string]any{{
				"id": "g-1", "userId": "u-7", "resourceType": "project", "action": "read",
				"resourceData": map[string]string{"team": "core", "project": "apollo"},
			}},
			"pagination": map[string]int{"page": 1, "pageSize": 10, "total": 1, "totalPages": 1},
		})
	})
	mux.HandleFunc("POST /resource-permissions", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		_ = consoletest.ReadJSON(r, &body)
		if body["userId"] == "ghost" {
			consoletest.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "user does not exist"})
			return
		}
		f.mu.Lock()
		f.created = append(f.created, body)
		f.mu.Unlock()
		consoletest.WriteJSON(w, http.StatusOK, map[string]any{"resourcePermission": map[string]string{"id": "g-2"}})
	})
	mux.HandleFunc("DELETE /resource-permissions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		consoletest.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	return mux
}

func newGrantsFixture(t *testing.T) (*consoletest.Env, *fakeGrantsAPI, chi.Router) {
	t.Helper()
	api := &fakeGrantsAPI{}
	env := consoletest.New(t, api.handler())
	handler := resourceperms.NewHandler(nil, resourceperms.NewService(env.API, env.Mutations()), env.Responder)
	r := chi.NewRouter()
	r.Route("/resource-permissions", handler.MountRoutes)
	env.SignIn()
	return env, api, r
}

func TestParseResourceData(t *testing.T) {
	data, err := resourceperms.ParseResourceData("team = core\n\nproject=apollo\r\nteam=infra")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "infra", "project": "apollo"}, data)

	data, err = resourceperms.ParseResourceData("  ")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = resourceperms.ParseResourceData("team")
	assert.ErrorIs(t, err, resourceperms.ErrResourceData)
	_, err = resourceperms.ParseResourceData("=core")
	assert.ErrorIs(t, err, resourceperms.ErrResourceData)

	assert.Equal(t, "project=apollo, team=core", resourceperms.FormatResourceData(map[string]string{"team": "core", "project": "apollo"}))
}

func TestListGrantsForwardsFilters(t *testing.T) {
	env, api, r := newGrantsFixture(t)

	res := env.Do(t, r, consoletest.Get("/resource-permissions?userId=u-7&resourceType=project&action=read&page=1"))
	require.Equal(t, http.StatusOK, res.Code)

	query, _, _ := api.snapshot()
	assert.Equal(t, "u-7", query.Get("filter.userId"))
	assert.Equal(t, "project", query.Get("filter.resourceType"))
	assert.Equal(t, "read", query.Get("filter.action"))

	body := res.Body.String()
	assert.Contains(t, body, "project=apollo, team=core")
	assert.Contains(t, body, `action="/resource-permissions/g-1/delete"`)
}

func TestCreateGrant(t *testing.T) {
	env, api, r := newGrantsFixture(t)

	form := url.Values{
		"userId":                    {"u-7"},
		"resourceType":              {"project"},
		"action":                    {"write"},
		"resourceData":              {"project=apollo\nteam=core"},
		shared.IdempotencyFormField: {"grant-1"},
	}
	res := env.Do(t, r, consoletest.PostForm("/resource-permissions", form))
	require.Equal(t, http.StatusSeeOther, res.Code)
	res = env.Do(t, r, consoletest.PostForm("/resource-permissions", form))
	require.Equal(t, http.StatusSeeOther, res.Code)

	_, _, created := api.snapshot()
	require.Len(t, created, 1)
	assert.Equal(t, map[string]any{"project": "apollo", "team": "core"}, created[0]["resourceData"])
	logs := env.Audit.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "g-2", logs[0].EntityID)
}

func TestCreateGrantShowsErrors(t *testing.T) {
	env, _, r := newGrantsFixture(t)

	res := env.Do(t, r, consoletest.PostForm("/resource-permissions", url.Values{
		"userId": {"u-7"}, "action": {"read"}, "resourceData": {"oops"},
	}))
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Use key=value, one per line")
	assert.Contains(t, body, "This field is required")
	assert.Contains(t, body, `value="u-7"`)

	res = env.Do(t, r, consoletest.PostForm("/resource-permissions", url.Values{
		"userId": {"ghost"}, "resourceType": {"project"}, "action": {"read"},
	}))
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "User does not exist")
}

func TestRevokeGrant(t *testing.T) {
	env, api, r := newGrantsFixture(t)

	res := env.Do(t, r, consoletest.PostForm("/resource-permissions/g-1/delete", url.Values{}))
	require.Equal(t, http.StatusSeeOther, res.Code)
	_, calls, _ := api.snapshot()
	assert.Equal(t, []string{"DELETE /resource-permissions/g-1"}, calls)
	assert.Equal(t, []string{"resource_permissions.delete"}, env.Audit.Actions())
}
