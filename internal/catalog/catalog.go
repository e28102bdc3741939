// Package catalog caches the option lists behind the console's select inputs
// (roles and permission resources) for a short time per viewer.
package catalog

import (
	"context"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/rbac-console/rbac-console/internal/apiclient"
)

const maxEntries = 512

// Source loads option lists from the remote API.
type Source interface {
	ListRoles(ctx context.Context, f apiclient.RoleFilter) ([]apiclient.Role, error)
	PermissionResources(ctx context.Context) ([]string, error)
}

// Catalog caches option lists keyed by viewer, so one user's view is never
// served to another.
type Catalog struct {
	source    Source
	roles     *lru.LRU[string, []apiclient.Role]
	resources *lru.LRU[string, []string]
	group     singleflight.Group
}

// New constructs a Catalog. A zero ttl uses one minute.
func New(source Source, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Catalog{
		source:    source,
		roles:     lru.NewLRU[string, []apiclient.Role](maxEntries, nil, ttl),
		resources: lru.NewLRU[string, []string](maxEntries, nil, ttl),
	}
}

// Roles returns every role sorted by name.
func (c *Catalog) Roles(ctx context.Context, viewer string) ([]apiclient.Role, error) {
	if roles, ok := c.roles.Get(viewer); ok {
		return roles, nil
	}
	v, err, _ := c.group.Do("roles:"+viewer, func() (interface{}, error) {
		roles, err := c.source.ListRoles(ctx, apiclient.RoleFilter{})
		if err != nil {
			return nil, err
		}
		sorted := append([]apiclient.Role(nil), roles...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
		c.roles.Add(viewer, sorted)
		return sorted, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]apiclient.Role), nil
}

// Resources returns the distinct permission resources, sorted.
func (c *Catalog) Resources(ctx context.Context, viewer string) ([]string, error) {
	if resources, ok := c.resources.Get(viewer); ok {
		return resources, nil
	}
	v, err, _ := c.group.Do("resources:"+viewer, func() (interface{}, error) {
		resources, err := c.source.PermissionResources(ctx)
		if err != nil {
			return nil, err
		}
		sorted := append([]string(nil), resources...)
		sort.Strings(sorted)
		c.resources.Add(viewer, sorted)
		return sorted, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// InvalidateRoles drops every cached role list, after a role mutation.
func (c *Catalog) InvalidateRoles() {
	c.roles.Purge()
}

// InvalidateResources drops every cached resource list.
func (c *Catalog) InvalidateResources() {
	c.resources.Purge()
}
