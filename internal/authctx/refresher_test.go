package authctx

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingRefresher(clock clockwork.Clock, calls *atomic.Int32) *Refresher {
	return NewRefresher(clock, 5*time.Minute, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
}

func TestRefresherRunsEagerlyThenOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32
	r := countingRefresher(clock, &calls)
	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	clock.Advance(4 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, time.Millisecond)
}

func TestRefresherStopFreezesCallCount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32
	r := countingRefresher(clock, &calls)
	r.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	r.Stop()
	frozen := calls.Load()

	clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, calls.Load())
	assert.True(t, r.Stopped())

	r.Stop()
	r.Start(context.Background())
	clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, calls.Load())
}

func TestRefresherStopCancelsInflightRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	started := make(chan struct{})
	var cancelled atomic.Bool
	r := NewRefresher(clock, time.Minute, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, nil)
	r.Start(context.Background())
	<-started

	r.Stop()
	assert.True(t, cancelled.Load())
}

func TestRefresherStopBeforeStart(t *testing.T) {
	var calls atomic.Int32
	r := countingRefresher(clockwork.NewFakeClock(), &calls)
	r.Stop()
	r.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
