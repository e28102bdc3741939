package authctx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultRefreshInterval is how often session tokens are renewed.
const DefaultRefreshInterval = 5 * time.Minute

// RefreshFunc renews tokens once.
type RefreshFunc func(ctx context.Context) error

// Refresher runs a RefreshFunc immediately on Start and then on a fixed
// interval. Runs may overlap; there is no backoff.
type Refresher struct {
	clock    clockwork.Clock
	interval time.Duration
	fn       RefreshFunc
	logger   *slog.Logger

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	inflight sync.WaitGroup
}

// NewRefresher constructs a Refresher. A zero interval uses DefaultRefreshInterval.
func NewRefresher(clock clockwork.Clock, interval time.Duration, fn RefreshFunc, logger *slog.Logger) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{clock: clock, interval: interval, fn: fn, logger: logger}
}

// Start begins refreshing. It is a no-op when already started or stopped.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.loopDone = make(chan struct{})

	r.launchLocked(ctx)
	ticker := r.clock.NewTicker(r.interval)
	go func() {
		defer close(r.loopDone)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				r.launch(ctx)
			}
		}
	}()
}

// Stop cancels in-flight runs and waits for them. No run starts after Stop
// returns. Stop is idempotent.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cancel, loopDone := r.cancel, r.loopDone
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if loopDone != nil {
		<-loopDone
	}
	r.inflight.Wait()
}

// Stopped reports whether Stop was called.
func (r *Refresher) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *Refresher) launch(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launchLocked(ctx)
}

func (r *Refresher) launchLocked(ctx context.Context) {
	if r.stopped {
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		if err := r.fn(ctx); err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "token refresh failed", slog.Any("error", err))
		}
	}()
}
