package authctx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/shared"
)

// Paths the middleware redirects to.
const (
	LoginPath = "/auth/login"
	HomePath  = "/"
)

var guestPaths = []string{"/auth/login", "/auth/register", "/auth/verify", "/auth/forgot-password", "/auth/reset-password"}

// IsGuestPath reports whether path is only meant for signed-out visitors.
func IsGuestPath(path string) bool {
	for _, p := range guestPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Middleware resolves the signed-in user for every page request.
type Middleware struct {
	Taxonomy      capability.Category
	Tokens        TokenStore
	Bootstrapper  *Bootstrapper
	Keepers       *Keepers
	Clock         clockwork.Clock
	ProfileMaxAge time.Duration
	Logger        *slog.Logger
}

// Handler installs the provider and API tokens in the request context and
// applies the sign-in redirects.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := shared.SessionFromContext(ctx)

		var tokens shared.Tokens
		var profile *apiclient.Profile
		if sess != nil {
			loaded, err := m.Tokens.Load(ctx, sess.ID)
			if err != nil && !errors.Is(err, shared.ErrNoTokens) {
				m.logger().ErrorContext(ctx, "load api tokens", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			tokens = loaded
			if !tokens.Empty() {
				profile = m.resolve(r, sess, &tokens)
			} else if _, ok := LoadProfile(sess); ok {
				ClearProfile(sess)
			}
		}

		provider := NewProvider(m.Taxonomy, profile)
		ctx = WithProvider(shared.ContextWithTokens(ctx, tokens), provider)
		r = r.WithContext(ctx)

		authenticated := provider.IsAuthenticated()
		if authenticated && m.Keepers != nil {
			m.Keepers.Ensure(sess.ID)
		}

		switch {
		case authenticated && IsGuestPath(r.URL.Path):
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		case !authenticated && !IsGuestPath(r.URL.Path):
			http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loginURL sends GET requests back to where they started once signed in.
func loginURL(r *http.Request) string {
	if r.Method != http.MethodGet || r.URL.Path == HomePath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"redirect": {r.URL.RequestURI()}}.Encode()
}

// SafeRedirect returns target when it is a local path and HomePath otherwise.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return HomePath
	}
	if IsGuestPath(strings.SplitN(target, "?", 2)[0]) {
		return HomePath
	}
	return target
}

// resolve returns the session's profile, from the snapshot while it is fresh
// and from the API otherwise. tokens is updated when a refresh happened and
// cleared when the API rejected them.
func (m Middleware) resolve(r *http.Request, sess *shared.Session, tokens *shared.Tokens) *apiclient.Profile {
	ctx := r.Context()
	now := m.clock().Now()
	if snap, ok := LoadProfile(sess); ok && now.Sub(snap.FetchedAt) < m.maxAge() {
		return &snap.Profile
	}

	res := m.Bootstrapper.Bootstrap(shared.ContextWithTokens(ctx, *tokens), sess.ID)
	if res.Refreshed {
		*tokens = res.Tokens
		if err := m.Tokens.Save(ctx, sess.ID, res.Tokens); err != nil {
			m.logger().WarnContext(ctx, "save refreshed tokens", slog.Any("error", err))
		}
	}
	if res.Rejected() {
		ClearProfile(sess)
		_ = m.Tokens.Delete(ctx, sess.ID)
		*tokens = shared.Tokens{}
		if m.Keepers != nil {
			m.Keepers.Stop(sess.ID)
		}
		return nil
	}
	if res.Profile == nil {
		// The API may be down; the tokens stay for the next request.
		m.logger().WarnContext(ctx, "profile unavailable", slog.Any("error", res.Err))
		return nil
	}
	if err := StoreProfile(sess, res.Profile, now); err != nil {
		m.logger().WarnContext(ctx, "store profile snapshot", slog.Any("error", err))
	}
	return res.Profile
}

func (m Middleware) clock() clockwork.Clock {
	if m.Clock == nil {
		return clockwork.NewRealClock()
	}
	return m.Clock
}

func (m Middleware) maxAge() time.Duration {
	if m.ProfileMaxAge <= 0 {
		return DefaultRefreshInterval
	}
	return m.ProfileMaxAge
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
