// Package rbac gates HTTP routes on the signed-in user's capabilities.
package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rbac-console/rbac-console/internal/authctx"
)

// Middleware wires capability checks for HTTP handlers. Paths are dotted
// capability paths such as "USER.LOCK".
type Middleware struct {
	// Forbidden answers denied requests. Defaults to a plain 403.
	Forbidden http.HandlerFunc
	Logger    *slog.Logger
}

// RequireAny lets the request through when at least one path is granted.
func (m Middleware) RequireAny(paths ...string) func(http.Handler) http.Handler {
	return m.require(normalizePaths(paths), hasAny)
}

// RequireAll lets the request through only when every path is granted.
func (m Middleware) RequireAll(paths ...string) func(http.Handler) http.Handler {
	return m.require(normalizePaths(paths), hasAll)
}

func (m Middleware) require(paths [][]string, check func(*authctx.Provider, [][]string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(paths) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			provider := authctx.FromContext(r.Context())
			if check(provider, paths) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.WarnContext(r.Context(), "rbac denied", slog.String("path", r.URL.Path), slog.String("user", provider.UserID()))
			}
			m.deny(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request) {
	if m.Forbidden != nil {
		m.Forbidden(w, r)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func normalizePaths(paths []string) [][]string {
	seen := make(map[string]struct{}, len(paths))
	out := make([][]string, 0, len(paths))
	for _, p := range paths {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, strings.Split(p, "."))
	}
	return out
}

func hasAny(p *authctx.Provider, paths [][]string) bool {
	for _, path := range paths {
		if p.Can(path...) {
			return true
		}
	}
	return false
}

func hasAll(p *authctx.Provider, paths [][]string) bool {
	for _, path := range paths {
		if !p.Can(path...) {
			return false
		}
	}
	return true
}
