package authctx

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rbac-console/rbac-console/internal/shared"
)

// ErrSessionGone stops a session's refresher.
var ErrSessionGone = errors.New("session gone")

// Refresh outcomes reported to RefreshObserver.
const (
	RefreshOK     = "ok"
	RefreshFailed = "failed"
	RefreshGone   = "gone"
)

// TokenStore persists API tokens per session.
type TokenStore interface {
	Load(ctx context.Context, sessionID string) (shared.Tokens, error)
	Save(ctx context.Context, sessionID string, t shared.Tokens) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionLookup reports whether a session still exists.
type SessionLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// TokenRefresher exchanges the refresh token in ctx for a new pair.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) (shared.Tokens, error)
}

// RefreshObserver counts refresh outcomes.
type RefreshObserver interface {
	ObserveRefresh(outcome string)
}

// KeepersConfig wires a Keepers registry.
type KeepersConfig struct {
	Clock    clockwork.Clock
	Interval time.Duration
	Tokens   TokenStore
	Sessions SessionLookup
	API      TokenRefresher
	Observer RefreshObserver
	Logger   *slog.Logger
}

// Keepers runs one token refresher per signed-in browser session.
type Keepers struct {
	cfg    KeepersConfig
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	refreshers map[string]*Refresher
	closed     bool
}

// NewKeepers constructs an empty registry.
func NewKeepers(cfg KeepersConfig) *Keepers {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Keepers{cfg: cfg, ctx: ctx, cancel: cancel, refreshers: make(map[string]*Refresher)}
}

// Ensure starts a refresher for the session unless one is running.
func (k *Keepers) Ensure(sessionID string) {
	if sessionID == "" {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	if _, ok := k.refreshers[sessionID]; ok {
		return
	}
	r := NewRefresher(k.cfg.Clock, k.cfg.Interval, func(ctx context.Context) error {
		return k.refresh(ctx, sessionID)
	}, k.cfg.Logger.With(slog.String("session", shortID(sessionID))))
	k.refreshers[sessionID] = r
	r.Start(k.ctx)
}

// Stop stops and forgets the session's refresher.
func (k *Keepers) Stop(sessionID string) {
	k.mu.Lock()
	r, ok := k.refreshers[sessionID]
	delete(k.refreshers, sessionID)
	k.mu.Unlock()
	if ok {
		r.Stop()
	}
}

// StopAll stops every refresher and rejects new ones.
func (k *Keepers) StopAll() {
	k.mu.Lock()
	k.closed = true
	all := k.refreshers
	k.refreshers = make(map[string]*Refresher)
	k.mu.Unlock()

	k.cancel()
	for _, r := range all {
		r.Stop()
	}
}

// Len returns the number of running refreshers.
func (k *Keepers) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.refreshers)
}

// Running reports whether the session has a refresher.
func (k *Keepers) Running(sessionID string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.refreshers[sessionID]
	return ok
}

func (k *Keepers) refresh(ctx context.Context, sessionID string) error {
	err := k.refreshOnce(ctx, sessionID)
	switch {
	case err == nil:
		k.observe(RefreshOK)
	case errors.Is(err, ErrSessionGone):
		k.observe(RefreshGone)
		// Stop waits for this run, so it cannot be called inline.
		go k.Stop(sessionID)
	default:
		k.observe(RefreshFailed)
	}
	return err
}

func (k *Keepers) refreshOnce(ctx context.Context, sessionID string) error {
	if k.cfg.Sessions != nil {
		exists, err := k.cfg.Sessions.Exists(ctx, sessionID)
		if err != nil {
			return err
		}
		if !exists {
			_ = k.cfg.Tokens.Delete(ctx, sessionID)
			return ErrSessionGone
		}
	}
	tokens, err := k.cfg.Tokens.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNoTokens) {
			return ErrSessionGone
		}
		return err
	}
	fresh, err := k.cfg.API.RefreshToken(shared.ContextWithTokens(ctx, tokens))
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			_ = k.cfg.Tokens.Delete(ctx, sessionID)
			return ErrSessionGone
		}
		return err
	}
	if fresh.Access == "" {
		return nil
	}
	return k.cfg.Tokens.Save(ctx, sessionID, fresh)
}

func (k *Keepers) observe(outcome string) {
	if k.cfg.Observer != nil {
		k.cfg.Observer.ObserveRefresh(outcome)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
