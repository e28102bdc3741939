package authctx

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/shared"
)

// ProfileSource is the part of the API client used to establish a session.
type ProfileSource interface {
	GetProfile(ctx context.Context) (*apiclient.Profile, error)
	RefreshToken(ctx context.Context) (shared.Tokens, error)
}

// DefaultBootstrapTimeout bounds one shared bootstrap attempt.
const DefaultBootstrapTimeout = 15 * time.Second

// Bootstrapper resolves the profile of a session from its tokens.
type Bootstrapper struct {
	source  ProfileSource
	logger  *slog.Logger
	group   singleflight.Group
	Timeout time.Duration
}

// NewBootstrapper constructs a Bootstrapper.
func NewBootstrapper(source ProfileSource, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{source: source, logger: logger, Timeout: DefaultBootstrapTimeout}
}

// Bootstrapped is the outcome of a bootstrap. Profile is nil when the session
// is not authenticated for this request; Tokens are the tokens in effect
// afterwards and Err is the last failure.
type Bootstrapped struct {
	Profile   *apiclient.Profile
	Tokens    shared.Tokens
	Refreshed bool
	Err       error
}

// Rejected reports whether the API refused the session's tokens, as opposed
// to failing for a reason that may pass.
func (b Bootstrapped) Rejected() bool {
	return b.Profile == nil && errors.Is(b.Err, shared.ErrUnauthenticated)
}

// Bootstrap loads the profile with the tokens in ctx. When that fails it
// refreshes the tokens once and tries again. Failures are logged, never
// returned. Concurrent calls with the same key share one attempt, which runs
// detached from the caller that started it so its cancellation does not fail
// the others.
func (b *Bootstrapper) Bootstrap(ctx context.Context, key string) Bootstrapped {
	tokens := shared.TokensFromContext(ctx)
	ch := b.group.DoChan(key, func() (interface{}, error) {
		timeout := b.Timeout
		if timeout <= 0 {
			timeout = DefaultBootstrapTimeout
		}
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return b.run(bctx, tokens), nil
	})
	select {
	case <-ctx.Done():
		return Bootstrapped{Tokens: tokens, Err: ctx.Err()}
	case res := <-ch:
		return res.Val.(Bootstrapped)
	}
}

func (b *Bootstrapper) run(ctx context.Context, tokens shared.Tokens) Bootstrapped {
	profile, err := b.source.GetProfile(ctx)
	if err == nil {
		return Bootstrapped{Profile: profile, Tokens: tokens}
	}
	b.logger.DebugContext(ctx, "profile load failed, refreshing tokens", slog.Any("error", err))

	refreshed, err := b.source.RefreshToken(ctx)
	if err != nil {
		b.logger.InfoContext(ctx, "token refresh failed", slog.Any("error", err))
		return Bootstrapped{Tokens: tokens, Err: err}
	}
	ctx = shared.ContextWithTokens(ctx, refreshed)
	profile, err = b.source.GetProfile(ctx)
	if err != nil {
		b.logger.InfoContext(ctx, "profile load failed after refresh", slog.Any("error", err))
		return Bootstrapped{Tokens: refreshed, Refreshed: true, Err: err}
	}
	return Bootstrapped{Profile: profile, Tokens: refreshed, Refreshed: true}
}
