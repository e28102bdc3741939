package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbac-console/rbac-console/internal/shared"
)

func newSessionConfig(t *testing.T) (MiddlewareConfig, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return MiddlewareConfig{
		SessionManager: shared.NewSessionManager(client, "console_session", "secret", time.Hour, false),
		CSRFManager:    shared.NewCSRFManager("csrf"),
	}, mr
}

func TestSessionCommittedWhenHandlerWritesNothing(t *testing.T) {
	cfg, mr := newSessionConfig(t)
	var id string
	h := sessionMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		sess.Set("seen", "yes")
		id = sess.ID
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, id)
	assert.True(t, mr.Exists("session:"+id))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "console_session=")
}

func TestSessionCommittedOnceBeforeBody(t *testing.T) {
	cfg, mr := newSessionConfig(t)
	var id string
	h := sessionMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Saved"})
		id = sess.ID
		http.Redirect(w, r, "/users", http.StatusSeeOther)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	stored, err := mr.Get("session:" + id)
	require.NoError(t, err)
	assert.Contains(t, stored, "Saved")
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestCSRFAcceptsHeaderToken(t *testing.T) {
	cfg, _ := newSessionConfig(t)
	var token string
	h := sessionMiddleware(cfg)(csrfMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	issue := sessionMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ = cfg.CSRFManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	}))

	rec := httptest.NewRecorder()
	issue.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/roles/r-1/delete", nil)
	req.AddCookie(cookie)
	req.Header.Set(shared.CSRFHeader, token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/roles/r-1/delete", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
