package authctx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbac-console/rbac-console/internal/shared"
)

func TestBootstrapUsesCurrentTokens(t *testing.T) {
	src := &fakeSource{validAccess: "good"}
	b := NewBootstrapper(src, nil)

	res := b.Bootstrap(shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "good", Refresh: "r"}), "sid")
	require.NotNil(t, res.Profile)
	assert.False(t, res.Refreshed)
	assert.Equal(t, "good", res.Tokens.Access)

	profiles, refreshes := src.counts()
	assert.Equal(t, 1, profiles)
	assert.Zero(t, refreshes)
}

func TestBootstrapRefreshesOnceThenRetries(t *testing.T) {
	src := &fakeSource{validAccess: "fresh", refreshTo: shared.Tokens{Access: "fresh", Refresh: "r2"}}
	b := NewBootstrapper(src, nil)

	res := b.Bootstrap(shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "stale", Refresh: "r1"}), "sid")
	require.NotNil(t, res.Profile)
	assert.True(t, res.Refreshed)
	assert.Equal(t, shared.Tokens{Access: "fresh", Refresh: "r2"}, res.Tokens)

	profiles, refreshes := src.counts()
	assert.Equal(t, 2, profiles)
	assert.Equal(t, 1, refreshes)
}

func TestBootstrapFailureIsUnauthenticated(t *testing.T) {
	src := &fakeSource{validAccess: "never", refreshErr: errors.New("refresh rejected")}
	b := NewBootstrapper(src, nil)

	res := b.Bootstrap(shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "stale"}), "sid")
	assert.Nil(t, res.Profile)
	assert.False(t, res.Refreshed)
	assert.EqualError(t, res.Err, "refresh rejected")
	assert.False(t, res.Rejected())

	src = &fakeSource{validAccess: "never", refreshTo: shared.Tokens{Access: "still-bad"}}
	res = NewBootstrapper(src, nil).Bootstrap(shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "stale"}), "sid")
	assert.Nil(t, res.Profile)
	assert.ErrorIs(t, res.Err, shared.ErrUnauthenticated)
	assert.True(t, res.Rejected())
	profiles, refreshes := src.counts()
	assert.Equal(t, 2, profiles)
	assert.Equal(t, 1, refreshes)
}

func TestBootstrapCollapsesConcurrentCalls(t *testing.T) {
	src := &fakeSource{validAccess: "good", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	b := NewBootstrapper(src, nil)
	ctx := shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "good"})

	var wg sync.WaitGroup
	results := make([]Bootstrapped, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = b.Bootstrap(ctx, "sid")
	}()
	<-src.entered
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = b.Bootstrap(ctx, "sid")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	wg.Wait()

	profiles, _ := src.counts()
	assert.Equal(t, 1, profiles)
	for _, res := range results {
		assert.NotNil(t, res.Profile)
	}
}

func TestBootstrapHonoursCancellation(t *testing.T) {
	src := &fakeSource{validAccess: "good", block: make(chan struct{})}
	defer close(src.block)
	b := NewBootstrapper(src, nil)

	ctx, cancel := context.WithCancel(shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "good"}))
	cancel()
	res := b.Bootstrap(ctx, "sid")
	assert.Nil(t, res.Profile)
	assert.Equal(t, "good", res.Tokens.Access)
}

func TestBootstrapCancelledCallerDoesNotFailJoinedCaller(t *testing.T) {
	src := &fakeSource{validAccess: "good", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	b := NewBootstrapper(src, nil)
	base := shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "good"})
	first, cancel := context.WithCancel(base)

	firstDone := make(chan Bootstrapped, 1)
	go func() { firstDone <- b.Bootstrap(first, "sid") }()
	<-src.entered

	joinedDone := make(chan Bootstrapped, 1)
	go func() { joinedDone <- b.Bootstrap(base, "sid") }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	res := <-firstDone
	assert.Nil(t, res.Profile)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, res.Rejected())

	close(src.block)
	res = <-joinedDone
	require.NotNil(t, res.Profile)
	assert.NoError(t, res.Err)
	profiles, _ := src.counts()
	assert.Equal(t, 1, profiles)
}

func TestBootstrapSharedAttemptHasItsOwnDeadline(t *testing.T) {
	src := &fakeSource{validAccess: "good", block: make(chan struct{})}
	defer close(src.block)
	b := NewBootstrapper(src, nil)
	b.Timeout = 20 * time.Millisecond

	res := b.Bootstrap(shared.ContextWithTokens(context.Background(), shared.Tokens{Access: "good"}), "sid")
	assert.Nil(t, res.Profile)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.False(t, res.Rejected())
}
