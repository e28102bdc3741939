package roles

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/table"
)

const (
	entity       = "role"
	seedPageSize = 100
	maxSeedPages = 50
)

// ErrNameTaken is returned when another role already uses the name.
var ErrNameTaken = errors.New("roles: name already taken")

// API defines the remote calls role management needs.
type API interface {
	ListRoles(ctx context.Context, f apiclient.RoleFilter) ([]apiclient.Role, error)
	GetRole(ctx context.Context, roleID string) (*apiclient.Role, error)
	RoleExists(ctx context.Context, name string) (bool, error)
	CreateRole(ctx context.Context, in apiclient.RoleInput) error
	UpdateRole(ctx context.Context, roleID string, in apiclient.RoleInput) (*apiclient.Role, error)
	DeleteRole(ctx context.Context, roleID string) error
	ListPermissions(ctx context.Context, q table.ListQuery) (*apiclient.PermissionPage, error)
	ListRolePermissions(ctx context.Context, q table.ListQuery) (*apiclient.RolePermissionPage, error)
	AttachRolePermissions(ctx context.Context, roleIDs, permissionIDs []string) ([]apiclient.RolePermission, error)
	DeleteRolePermission(ctx context.Context, roleID, permissionID string) error
}

// Catalog serves cached option lists and is told when roles change.
type Catalog interface {
	Resources(ctx context.Context, viewer string) ([]string, error)
	InvalidateRoles()
}

// Service handles role business logic.
type Service struct {
	api       API
	catalog   Catalog
	mutations shared.Mutations
}

// NewService builds Service instance.
func NewService(api API, catalog Catalog, mutations shared.Mutations) *Service {
	return &Service{api: api, catalog: catalog, mutations: mutations}
}

// List returns every role matching the filter. The API does not page roles.
func (s *Service) List(ctx context.Context, f apiclient.RoleFilter) ([]apiclient.Role, error) {
	return s.api.ListRoles(ctx, f)
}

// Get loads one role.
func (s *Service) Get(ctx context.Context, roleID string) (*apiclient.Role, error) {
	return s.api.GetRole(ctx, roleID)
}

// Create creates a role once per submission key.
func (s *Service) Create(ctx context.Context, key string, f Form) error {
	exists, err := s.api.RoleExists(ctx, f.Name)
	if err != nil {
		return err
	}
	if exists {
		return ErrNameTaken
	}
	actor := authctx.FromContext(ctx).UserID()
	err = s.mutations.Run(ctx, key, s.entry(ctx, "roles.create", ""), func(ctx context.Context) (string, error) {
		return f.Name, s.api.CreateRole(ctx, f.input(actor))
	})
	if err == nil {
		s.catalog.InvalidateRoles()
	}
	return err
}

// Update saves a role.
func (s *Service) Update(ctx context.Context, key, roleID string, f Form) error {
	err := s.mutations.Run(ctx, key, s.entry(ctx, "roles.update", roleID), func(ctx context.Context) (string, error) {
		_, err := s.api.UpdateRole(ctx, roleID, f.input(""))
		return "", err
	})
	if err == nil {
		s.catalog.InvalidateRoles()
	}
	return err
}

// Delete removes a role.
func (s *Service) Delete(ctx context.Context, roleID string) error {
	err := s.mutations.Run(ctx, "", s.entry(ctx, "roles.delete", roleID), func(ctx context.Context) (string, error) {
		return "", s.api.DeleteRole(ctx, roleID)
	})
	if err == nil {
		s.catalog.InvalidateRoles()
	}
	return err
}

// Granted returns the ids of every permission the role holds, walking the
// link pages until the API reports the last one.
func (s *Service) Granted(ctx context.Context, roleID string) ([]string, error) {
	q := table.ListQuery{Page: 1, PageSize: seedPageSize, Filters: map[string]string{"roleId": roleID}}
	var ids []string
	for range maxSeedPages {
		page, err := s.api.ListRolePermissions(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, link := range page.RolePermissions {
			ids = append(ids, link.PermissionID)
		}
		if len(page.RolePermissions) == 0 || q.Page >= page.Pagination.TotalPages {
			break
		}
		q = q.Next()
	}
	return ids, nil
}

// PermissionsView is the data of the assign-permissions page.
type PermissionsView struct {
	Role        *apiclient.Role
	Resources   []string
	Permissions *apiclient.PermissionPage
}

// Permissions loads the role, the resource options and one page of
// permissions concurrently.
func (s *Service) Permissions(ctx context.Context, roleID string, q table.ListQuery) (*PermissionsView, error) {
	var out PermissionsView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		role, err := s.api.GetRole(gctx, roleID)
		out.Role = role
		return err
	})
	g.Go(func() error {
		resources, err := s.catalog.Resources(gctx, authctx.FromContext(ctx).UserID())
		out.Resources = resources
		return err
	})
	g.Go(func() error {
		page, err := s.api.ListPermissions(gctx, q)
		out.Permissions = page
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavePermissions applies a draft: new selections are attached in one call,
// cleared ones are detached one by one.
func (s *Service) SavePermissions(ctx context.Context, key, roleID string, d Draft) error {
	added, removed := d.Changes()
	entry := s.entry(ctx, "roles.assign_permissions", roleID)
	entry.Meta = map[string]any{"added": added, "removed": removed}
	return s.mutations.Run(ctx, key, entry, func(ctx context.Context) (string, error) {
		if len(added) > 0 {
			if _, err := s.api.AttachRolePermissions(ctx, []string{roleID}, added); err != nil {
				return "", err
			}
		}
		for _, permissionID := range removed {
			if err := s.api.DeleteRolePermission(ctx, roleID, permissionID); err != nil {
				return "", err
			}
		}
		return "", nil
	})
}

func (s *Service) entry(ctx context.Context, action, roleID string) shared.AuditLog {
	return shared.AuditLog{
		ActorID:  authctx.FromContext(ctx).UserID(),
		Action:   action,
		Entity:   entity,
		EntityID: roleID,
	}
}
