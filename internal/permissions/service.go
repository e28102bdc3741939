package permissions

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/table"
)

const entity = "permission"

// API defines the remote calls permission management needs.
type API interface {
	ListPermissions(ctx context.Context, q table.ListQuery) (*apiclient.PermissionPage, error)
	GetPermission(ctx context.Context, permissionID string) (*apiclient.Permission, error)
	UpdatePermission(ctx context.Context, permissionID string, in apiclient.UpdatePermissionRequest) (*apiclient.Permission, error)
	RolesByPermission(ctx context.Context, permissionID string) ([]apiclient.Role, error)
	CreateRolePermission(ctx context.Context, roleID, permissionID string) (*apiclient.RolePermission, error)
	DeleteRolePermission(ctx context.Context, roleID, permissionID string) error
}

// Catalog serves the cached option lists of the permission pages.
type Catalog interface {
	Roles(ctx context.Context, viewer string) ([]apiclient.Role, error)
	Resources(ctx context.Context, viewer string) ([]string, error)
}

// Service handles permission business logic.
type Service struct {
	api       API
	catalog   Catalog
	mutations shared.Mutations
}

// NewService builds Service instance.
func NewService(api API, catalog Catalog, mutations shared.Mutations) *Service {
	return &Service{api: api, catalog: catalog, mutations: mutations}
}

// Listing is one page of permissions plus the resource filter options.
type Listing struct {
	Page      *apiclient.PermissionPage
	Resources []string
}

// List loads a page of permissions and the resource options concurrently.
func (s *Service) List(ctx context.Context, q table.ListQuery) (*Listing, error) {
	var out Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.api.ListPermissions(gctx, q)
		out.Page = page
		return err
	})
	g.Go(func() error {
		resources, err := s.catalog.Resources(gctx, authctx.FromContext(ctx).UserID())
		out.Resources = resources
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get loads one permission.
func (s *Service) Get(ctx context.Context, permissionID string) (*apiclient.Permission, error) {
	return s.api.GetPermission(ctx, permissionID)
}

// Update saves the description and visibility of a permission.
func (s *Service) Update(ctx context.Context, permissionID string, f Form) error {
	entry := s.entry(ctx, "permissions.update", permissionID)
	entry.Meta = map[string]any{"is_public": f.IsPublic}
	return s.mutations.Run(ctx, "", entry, func(ctx context.Context) (string, error) {
		_, err := s.api.UpdatePermission(ctx, permissionID, apiclient.UpdatePermissionRequest{Description: f.Description, IsPublic: f.IsPublic})
		return "", err
	})
}

// Holders is the data of the roles-holding-a-permission page.
type Holders struct {
	Permission *apiclient.Permission
	Roles      []apiclient.Role
	Available  []apiclient.Role
}

// Holders loads the permission, the roles holding it and every role.
func (s *Service) Holders(ctx context.Context, permissionID string) (*Holders, error) {
	var (
		out Holders
		all []apiclient.Role
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.api.GetPermission(gctx, permissionID)
		out.Permission = p
		return err
	})
	g.Go(func() error {
		roles, err := s.api.RolesByPermission(gctx, permissionID)
		out.Roles = roles
		return err
	})
	g.Go(func() error {
		roles, err := s.catalog.Roles(gctx, authctx.FromContext(ctx).UserID())
		all = roles
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.Available = available(all, out.Roles)
	return &out, nil
}

// AddRole grants the permission to a role.
func (s *Service) AddRole(ctx context.Context, permissionID, roleID string) error {
	entry := s.entry(ctx, "permissions.add_role", permissionID)
	entry.Meta = map[string]any{"role_id": roleID}
	return s.mutations.Run(ctx, "", entry, func(ctx context.Context) (string, error) {
		_, err := s.api.CreateRolePermission(ctx, roleID, permissionID)
		return "", err
	})
}

// RemoveRole takes the permission away from a role.
func (s *Service) RemoveRole(ctx context.Context, permissionID, roleID string) error {
	entry := s.entry(ctx, "permissions.remove_role", permissionID)
	entry.Meta = map[string]any{"role_id": roleID}
	return s.mutations.Run(ctx, "", entry, func(ctx context.Context) (string, error) {
		return "", s.api.DeleteRolePermission(ctx, roleID, permissionID)
	})
}

func (s *Service) entry(ctx context.Context, action, permissionID string) shared.AuditLog {
	return shared.AuditLog{
		ActorID:  authctx.FromContext(ctx).UserID(),
		Action:   action,
		Entity:   entity,
		EntityID: permissionID,
	}
}
