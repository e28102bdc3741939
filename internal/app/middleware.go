package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/rbac-console/rbac-console/internal/observability"
	"github.com/rbac-console/rbac-console/internal/shared"
)

// Middleware is the shape every entry of the stack has.
type Middleware = func(http.Handler) http.Handler

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

func (c MiddlewareConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// MiddlewareStack installs the console middleware chain. The session is
// loaded before Recoverer so a panic still commits the flash it queued.
func MiddlewareStack(cfg MiddlewareConfig) []Middleware {
	timeout := 30 * time.Second
	authLimit := 0
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		authLimit = cfg.Config.AuthRateLimit
	}

	stack := []Middleware{
		middleware.RealIP,
		middleware.RequestID,
		sessionMiddleware(cfg),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		secureHeaders(cfg),
		middleware.Compress(5),
		httprate.Limit(600, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		authRateLimit(authLimit),
		csrfMiddleware(cfg),
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware)
	}
	return stack
}

// sessionMiddleware loads the Redis session into the request context and
// commits it right before the first header write, or after the handler when
// it wrote nothing.
func sessionMiddleware(cfg MiddlewareConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := cfg.SessionManager.Load(ctx, r)
			if err != nil {
				cfg.logger().ErrorContext(ctx, "load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			r = r.WithContext(shared.ContextWithSession(ctx, sess))

			commit := func(ctx context.Context, w http.ResponseWriter) {
				if err := cfg.SessionManager.Commit(ctx, w, r, sess); err != nil {
					cfg.logger().ErrorContext(ctx, "commit session", slog.Any("error", err))
				}
			}
			cw := &committingWriter{ResponseWriter: w, commit: commit, ctx: r.Context()}
			next.ServeHTTP(cw, r)
			cw.flushCommit()
		})
	}
}

type committingWriter struct {
	http.ResponseWriter
	commit    func(context.Context, http.ResponseWriter)
	ctx       context.Context
	committed bool
}

func (w *committingWriter) flushCommit() {
	if w.committed {
		return
	}
	w.committed = true
	w.commit(w.ctx, w.ResponseWriter)
}

func (w *committingWriter) WriteHeader(statusCode int) {
	w.flushCommit()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *committingWriter) Write(data []byte) (int, error) {
	w.flushCommit()
	return w.ResponseWriter.Write(data)
}

func (w *committingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// csrfMiddleware rejects unsafe requests whose token, from the form field or
// the header, does not match the session's.
func csrfMiddleware(cfg MiddlewareConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			token := r.PostFormValue(shared.CSRFFormField)
			if token == "" {
				token = r.Header.Get(shared.CSRFHeader)
			}
			sess := shared.SessionFromContext(r.Context())
			if err := cfg.CSRFManager.VerifyToken(r.Context(), sess, token); err != nil {
				cfg.logger().WarnContext(r.Context(), "csrf validation failed",
					slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// secureHeaders applies the console's security headers. HTTPS is enforced in
// production only.
func secureHeaders(cfg MiddlewareConfig) Middleware {
	production := cfg.Config.IsProduction()
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		ContentSecurityPolicy: "default-src 'self'; form-action 'self'; frame-ancestors 'none'",
		SSLRedirect:           production,
		STSSeconds:            stsSeconds(production),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				cfg.logger().WarnContext(r.Context(), "secure headers blocked request", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

// authRateLimit throttles form posts under /auth per client IP. GET requests
// and the rest of the console only see the global limit.
func authRateLimit(perMinute int) Middleware {
	if perMinute <= 0 {
		perMinute = 10
	}
	limit := httprate.Limit(perMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/auth/") {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
