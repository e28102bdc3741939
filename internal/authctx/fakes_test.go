package authctx

import (
	"context"
	"sync"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/shared"
)

type fakeSource struct {
	mu           sync.Mutex
	profileCalls int
	refreshCalls int
	// validAccess is the access token GetProfile accepts.
	validAccess string
	refreshTo   shared.Tokens
	refreshErr  error
	block       chan struct{}
	entered     chan struct{}
}

func (f *fakeSource) GetProfile(ctx context.Context) (*apiclient.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	block, entered, valid := f.block, f.entered, f.validAccess
	f.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if shared.TokensFromContext(ctx).Access != valid {
		return nil, &apiclient.APIError{Status: 401, Message: "Unauthenticated"}
	}
	return &apiclient.Profile{
		User:        apiclient.UserInfo{ID: "u-1", Email: "admin@example.com"},
		Roles:       []string{"admin"},
		Permissions: []capability.Grant{capability.UserLock.Grant()},
	}, nil
}

func (f *fakeSource) RefreshToken(ctx context.Context) (shared.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return shared.Tokens{}, f.refreshErr
	}
	return f.refreshTo, nil
}

// restore makes the source accept access and refresh successfully again.
func (f *fakeSource) restore(access string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess = access
	f.refreshErr = nil
}

func (f *fakeSource) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls, f.refreshCalls
}

type memTokens struct {
	mu   sync.Mutex
	data map[string]shared.Tokens
}

func newMemTokens() *memTokens {
	return &memTokens{data: map[string]shared.Tokens{}}
}

func (m *memTokens) Load(_ context.Context, id string) (shared.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data[id]
	if !ok {
		return shared.Tokens{}, shared.ErrNoTokens
	}
	return t, nil
}

func (m *memTokens) Save(_ context.Context, id string, t shared.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = t
	return nil
}

func (m *memTokens) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memTokens) get(id string) (shared.Tokens, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data[id]
	return t, ok
}
