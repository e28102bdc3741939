// Package authctx owns the signed-in user's profile for a request, derives
// the capability map from it and keeps the session's API tokens fresh.
package authctx

import (
	"context"
	"sync"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/capability"
)

// Provider holds the current profile and the capability map derived from it.
// The map is rebuilt whenever the profile is replaced and never edited in
// place.
type Provider struct {
	mu       sync.RWMutex
	taxonomy capability.Category
	profile  *apiclient.Profile
	caps     capability.Map
}

// NewProvider seeds a provider from a bootstrap profile without any I/O. A
// nil profile means unauthenticated.
func NewProvider(taxonomy capability.Category, bootstrap *apiclient.Profile) *Provider {
	if taxonomy == nil {
		taxonomy = capability.Default()
	}
	p := &Provider{taxonomy: taxonomy}
	p.SetProfile(bootstrap)
	return p
}

// SetProfile replaces the profile wholesale.
func (p *Provider) SetProfile(profile *apiclient.Profile) {
	var grants []capability.Grant
	if profile != nil {
		grants = profile.Permissions
	}
	caps := capability.Resolve(p.taxonomy, grants)

	p.mu.Lock()
	p.profile = profile
	p.caps = caps
	p.mu.Unlock()
}

// Profile returns the current profile or nil.
func (p *Provider) Profile() *apiclient.Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profile
}

// UserID returns the signed-in user's id or "".
func (p *Provider) UserID() string {
	if profile := p.Profile(); profile != nil {
		return profile.User.ID
	}
	return ""
}

// IsAuthenticated reports whether a profile is present.
func (p *Provider) IsAuthenticated() bool {
	return p.Profile() != nil
}

// Capabilities returns the capability map of the current profile.
func (p *Provider) Capabilities() capability.Map {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.caps
}

// Can is shorthand for Capabilities().Allowed.
func (p *Provider) Can(path ...string) bool {
	return p.Capabilities().Allowed(path...)
}

// CanPath is shorthand for Capabilities().AllowedPath.
func (p *Provider) CanPath(dotted string) bool {
	return p.Capabilities().AllowedPath(dotted)
}

type providerContextKey struct{}

// WithProvider stores the provider in ctx.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerContextKey{}, p)
}

// FromContext returns the request's provider. Outside the middleware it
// returns an unauthenticated provider over the default taxonomy.
func FromContext(ctx context.Context) *Provider {
	if p, ok := ctx.Value(providerContextKey{}).(*Provider); ok && p != nil {
		return p
	}
	return NewProvider(nil, nil)
}
