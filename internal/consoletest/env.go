// Package consoletest wires page handlers against an in-memory Redis and a
// fake RBAC API for handler tests.
package consoletest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/catalog"
	"github.com/rbac-console/rbac-console/internal/rbac"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/view"
)

// Tokens every signed-in test request carries.
var Tokens = shared.Tokens{Access: "test-access", Refresh: "test-refresh"}

// Env bundles the collaborators handlers are built from.
type Env struct {
	Mini        *miniredis.Miniredis
	Redis       *redis.Client
	Sessions    *shared.SessionManager
	CSRF        *shared.CSRFManager
	TokenStore  *shared.TokenStore
	Idempotency *shared.IdempotencyStore
	Templates   *view.Engine
	Responder   view.Responder
	API         *apiclient.Client
	Catalog     *catalog.Catalog
	Clock       *clockwork.FakeClock
	Audit       *RecordingAudit

	profile   *apiclient.Profile
	sessionID string
}

// New starts miniredis and a fake API server serving api.
func New(t *testing.T, api http.Handler) *Env {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	templates, err := view.NewEngine()
	require.NoError(t, err)

	csrf := shared.NewCSRFManager("csrfsecret")
	apiClient := apiclient.New(apiclient.Config{BaseURL: srv.URL, Timeout: 2 * time.Second, RetryWait: time.Millisecond}, nil, nil)
	return &Env{
		Mini:        mr,
		Redis:       client,
		Sessions:    shared.NewSessionManager(client, "test_session", "secret", time.Hour, false),
		CSRF:        csrf,
		TokenStore:  shared.NewTokenStore(client, "secret", time.Hour),
		Idempotency: shared.NewIdempotencyStore(client, time.Hour),
		Templates:   templates,
		Responder:   view.Responder{Templates: templates, CSRF: csrf},
		API:         apiClient,
		Catalog:     catalog.New(apiClient, time.Minute),
		Clock:       clockwork.NewFakeClock(),
		Audit:       &RecordingAudit{},
	}
}

// SignIn makes following requests run as a user holding grants.
func (e *Env) SignIn(grants ...capability.Leaf) *apiclient.Profile {
	p := &apiclient.Profile{
		User:  apiclient.UserInfo{ID: "admin-1", Email: "admin@example.com", FullName: "Admin"},
		Roles: []string{"admin"},
	}
	for _, g := range grants {
		p.Permissions = append(p.Permissions, g.Grant())
	}
	e.profile = p
	return p
}

// SignOut makes following requests anonymous.
func (e *Env) SignOut() {
	e.profile = nil
}

// SessionID is the id of the session carried between requests.
func (e *Env) SessionID() string {
	return e.sessionID
}

// Session loads the current session from Redis.
func (e *Env) Session(t *testing.T) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if e.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: e.Sessions.CookieName(), Value: e.Sessions.CookieValue(e.sessionID)})
	}
	sess, err := e.Sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

// Do runs req through h with the session, provider and tokens the real
// middleware would install, then commits the session.
func (e *Env) Do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if e.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: e.Sessions.CookieName(), Value: e.Sessions.CookieValue(e.sessionID)})
	}
	ctx := req.Context()
	sess, err := e.Sessions.Load(ctx, req)
	require.NoError(t, err)

	ctx = shared.ContextWithSession(ctx, sess)
	ctx = authctx.WithProvider(ctx, authctx.NewProvider(nil, e.profile))
	if e.profile != nil {
		ctx = shared.ContextWithTokens(ctx, Tokens)
	}
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NoError(t, e.Sessions.Commit(ctx, httptest.NewRecorder(), req, sess))
	e.sessionID = sess.ID
	return rec
}

// Get builds a GET request.
func Get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

// PostForm builds a form POST.
func PostForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Flash pops the next flash message of the current session.
func (e *Env) Flash(t *testing.T) *shared.FlashMessage {
	t.Helper()
	sess := e.Session(t)
	flash := sess.PopFlash()
	require.NoError(t, e.Sessions.Commit(context.Background(), httptest.NewRecorder(), Get("/"), sess))
	return flash
}

// WriteJSON answers a fake API call.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes a fake API request body.
func ReadJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// RecordingAudit keeps audit entries in memory.
type RecordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

// Record implements shared.AuditSink.
func (a *RecordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

// Actions lists the recorded actions in order.
func (a *RecordingAudit) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

// Logs returns a copy of the recorded entries.
func (a *RecordingAudit) Logs() []shared.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]shared.AuditLog(nil), a.logs...)
}

// Mutations returns the idempotent, audited write runner handlers use.
func (e *Env) Mutations() shared.Mutations {
	return shared.Mutations{Idempotency: e.Idempotency, Audit: e.Audit}
}

// Rbac returns the capability middleware answering with the 403 page.
func (e *Env) Rbac() rbac.Middleware {
	return rbac.Middleware{Forbidden: e.Responder.Forbidden}
}
