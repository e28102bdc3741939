package resourceperms

import (
	"context"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/table"
)

const entity = "resource_permission"

// API defines the remote calls resource grants need.
type API interface {
	ListResourcePermissions(ctx context.Context, q table.ListQuery, data map[string]string) (*apiclient.ResourcePermissionPage, error)
	CreateResourcePermission(ctx context.Context, in apiclient.ResourcePermissionInput) (*apiclient.ResourcePermission, error)
	DeleteResourcePermission(ctx context.Context, grantID string) error
}

// Service handles resource grant business logic.
type Service struct {
	api       API
	mutations shared.Mutations
}

// NewService builds Service instance.
func NewService(api API, mutations shared.Mutations) *Service {
	return &Service{api: api, mutations: mutations}
}

// List returns one page of grants.
func (s *Service) List(ctx context.Context, q table.ListQuery) (*apiclient.ResourcePermissionPage, error) {
	return s.api.ListResourcePermissions(ctx, q, nil)
}

// Grant creates a grant once per submission key.
func (s *Service) Grant(ctx context.Context, key string, f Form, data map[string]string) error {
	entry := s.entry(ctx, "resource_permissions.create", "")
	entry.Meta = map[string]any{"user_id": f.UserID, "resource_type": f.ResourceType, "action": f.Action}
	return s.mutations.Run(ctx, key, entry, func(ctx context.Context) (string, error) {
		grant, err := s.api.CreateResourcePermission(ctx, f.input(data))
		if err != nil {
			return "", err
		}
		return grant.ID, nil
	})
}

// Revoke deletes a grant.
func (s *Service) Revoke(ctx context.Context, grantID string) error {
	return s.mutations.Run(ctx, "", s.entry(ctx, "resource_permissions.delete", grantID), func(ctx context.Context) (string, error) {
		return "", s.api.DeleteResourcePermission(ctx, grantID)
	})
}

func (s *Service) entry(ctx context.Context, action, grantID string) shared.AuditLog {
	return shared.AuditLog{
		ActorID:  authctx.FromContext(ctx).UserID(),
		Action:   action,
		Entity:   entity,
		EntityID: grantID,
	}
}
