package users

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/table"
)

const entity = "user"

// API defines the remote calls user management needs.
type API interface {
	ListUsers(ctx context.Context, q table.ListQuery) (*apiclient.UserPage, error)
	GetUser(ctx context.Context, userID string) (*apiclient.User, error)
	CreateUser(ctx context.Context, in apiclient.CreateUserRequest) (*apiclient.User, error)
	UpdateUser(ctx context.Context, userID string, in apiclient.UpdateUserRequest) (*apiclient.UserInfo, error)
	LockUser(ctx context.Context, userID, reason string) error
	UnlockUser(ctx context.Context, userID string) error
	DeleteUserRolesByUser(ctx context.Context, userID string) error
}

// RoleOptions lists the roles a user can be given.
type RoleOptions interface {
	Roles(ctx context.Context, viewer string) ([]apiclient.Role, error)
}

// Service handles user business logic.
type Service struct {
	api       API
	roles     RoleOptions
	mutations shared.Mutations
}

// NewService builds Service instance.
func NewService(api API, roles RoleOptions, mutations shared.Mutations) *Service {
	return &Service{api: api, roles: roles, mutations: mutations}
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, q table.ListQuery) (*apiclient.UserPage, error) {
	return s.api.ListUsers(ctx, q)
}

// Get loads one user.
func (s *Service) Get(ctx context.Context, userID string) (*apiclient.User, error) {
	return s.api.GetUser(ctx, userID)
}

// Create creates a user once per submission key.
func (s *Service) Create(ctx context.Context, key string, f Form) error {
	return s.mutations.Run(ctx, key, s.entry(ctx, "users.create", ""), func(ctx context.Context) (string, error) {
		u, err := s.api.CreateUser(ctx, f.createRequest())
		if err != nil {
			return "", err
		}
		return u.ID, nil
	})
}

// Update saves the profile fields of a user.
func (s *Service) Update(ctx context.Context, key, userID string, f Form) error {
	return s.mutations.Run(ctx, key, s.entry(ctx, "users.update", userID), func(ctx context.Context) (string, error) {
		_, err := s.api.UpdateUser(ctx, userID, f.updateRequest())
		return "", err
	})
}

// Lock locks a user with a reason.
func (s *Service) Lock(ctx context.Context, userID, reason string) error {
	entry := s.entry(ctx, "users.lock", userID)
	entry.Meta = map[string]any{"reason": reason}
	return s.mutations.Run(ctx, "", entry, func(ctx context.Context) (string, error) {
		return "", s.api.LockUser(ctx, userID, reason)
	})
}

// Unlock unlocks a user.
func (s *Service) Unlock(ctx context.Context, userID string) error {
	return s.mutations.Run(ctx, "", s.entry(ctx, "users.unlock", userID), func(ctx context.Context) (string, error) {
		return "", s.api.UnlockUser(ctx, userID)
	})
}

// RoleAssignment is the data of the change-roles page.
type RoleAssignment struct {
	User  *apiclient.User
	Roles []apiclient.Role
}

// Assignment loads the user and the role options concurrently.
func (s *Service) Assignment(ctx context.Context, userID string) (*RoleAssignment, error) {
	var out RoleAssignment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.api.GetUser(gctx, userID)
		out.User = u
		return err
	})
	g.Go(func() error {
		roles, err := s.roles.Roles(gctx, authctx.FromContext(ctx).UserID())
		out.Roles = roles
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetRoles replaces the user's roles. An empty set removes every role.
func (s *Service) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	entry := s.entry(ctx, "users.set_roles", userID)
	entry.Meta = map[string]any{"role_ids": roleIDs}
	return s.mutations.Run(ctx, "", entry, func(ctx context.Context) (string, error) {
		if len(roleIDs) == 0 {
			return "", s.api.DeleteUserRolesByUser(ctx, userID)
		}
		_, err := s.api.UpdateUser(ctx, userID, apiclient.UpdateUserRequest{RoleIDs: roleIDs})
		return "", err
	})
}

func (s *Service) entry(ctx context.Context, action, userID string) shared.AuditLog {
	return shared.AuditLog{
		ActorID:  authctx.FromContext(ctx).UserID(),
		Action:   action,
		Entity:   entity,
		EntityID: userID,
	}
}
