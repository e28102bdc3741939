package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/table"
)

// UserRoleFilterKeys are the list filters forwarded for user-role links.
var UserRoleFilterKeys = []string{"userId", "roleId"}

// UserRole links a user to a role.
type UserRole struct {
	UserID    string     `json:"userId"`
	RoleID    string     `json:"roleId"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UserRolePage is one page of user-role links.
type UserRolePage struct {
	UserRoles  []UserRole             `json:"userRoles"`
	Pagination table.ServerPagination `json:"pagination"`
}

// UserPermissions is the effective grant set of a user.
type UserPermissions struct {
	UserID      string             `json:"userId"`
	Roles       []string           `json:"roles"`
	Permissions []capability.Grant `json:"permissions"`
	Scopes      []Scope            `json:"scopes"`
}

type userRoleEnvelope struct {
	Data UserRole `json:"data"`
}

type userRolesEnvelope struct {
	UserRoles []UserRole `json:"userRoles"`
}

type manyUserRolesEnvelope struct {
	UserRoles []UserRole `json:"user_roles"`
}

// ListUserRoles returns one page of links filtered by user or role.
func (c *Client) ListUserRoles(ctx context.Context, q table.ListQuery) (*UserRolePage, error) {
	return send[UserRolePage](ctx, c, call{op: "user_roles.list", method: http.MethodGet, route: "/user-roles", query: listParams(q, UserRoleFilterKeys...).values()})
}

// CreateUserRole links one user to one role.
func (c *Client) CreateUserRole(ctx context.Context, userID, roleID string) (*UserRole, error) {
	res, err := send[userRoleEnvelope](ctx, c, call{
		op: "user_roles.create", method: http.MethodPost, route: "/user-roles",
		body: map[string]string{"userId": userID, "roleId": roleID},
	})
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// AttachUserRoles links every user to every role.
func (c *Client) AttachUserRoles(ctx context.Context, userIDs, roleIDs []string) ([]UserRole, error) {
	res, err := send[userRolesEnvelope](ctx, c, call{
		op: "user_roles.attach", method: http.MethodPost, route: "/user-roles/attach",
		body: map[string][]string{"userIds": nonNil(userIDs), "roleIds": nonNil(roleIDs)},
	})
	if err != nil {
		return nil, err
	}
	return res.UserRoles, nil
}

// CreateManyUserRoles creates the given links.
func (c *Client) CreateManyUserRoles(ctx context.Context, links []UserRole) ([]UserRole, error) {
	body := make([]map[string]string, 0, len(links))
	for _, l := range links {
		body = append(body, map[string]string{"userId": l.UserID, "roleId": l.RoleID})
	}
	res, err := send[manyUserRolesEnvelope](ctx, c, call{op: "user_roles.create_many", method: http.MethodPost, route: "/user-roles/many", body: map[string]any{"user_roles": body}})
	if err != nil {
		return nil, err
	}
	return res.UserRoles, nil
}

// CountUserRoles counts every link.
func (c *Client) CountUserRoles(ctx context.Context) (int64, error) {
	res, err := send[countResponse](ctx, c, call{op: "user_roles.count", method: http.MethodGet, route: "/user-roles/count"})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// CountUserRolesByRole counts the users holding a role.
func (c *Client) CountUserRolesByRole(ctx context.Context, roleID string) (int64, error) {
	res, err := send[countResponse](ctx, c, call{op: "user_roles.count_by_role", method: http.MethodGet, route: "/user-roles/role/{id}/count", path: id("id", roleID)})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// DeleteUserRolesByRole removes a role from every user.
func (c *Client) DeleteUserRolesByRole(ctx context.Context, roleID string) error {
	_, err := send[successResponse](ctx, c, call{op: "user_roles.delete_by_role", method: http.MethodDelete, route: "/user-roles/role/{id}", path: id("id", roleID)})
	return err
}

// CountUserRolesByUser counts the roles of a user.
func (c *Client) CountUserRolesByUser(ctx context.Context, userID string) (int64, error) {
	res, err := send[countResponse](ctx, c, call{op: "user_roles.count_by_user", method: http.MethodGet, route: "/user-roles/user/{id}/count", path: id("id", userID)})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// DeleteUserRolesByUser removes every role from a user.
func (c *Client) DeleteUserRolesByUser(ctx context.Context, userID string) error {
	_, err := send[successResponse](ctx, c, call{op: "user_roles.delete_by_user", method: http.MethodDelete, route: "/user-roles/user/{id}", path: id("id", userID)})
	return err
}

// GetUserPermissions returns the effective grants of a user.
func (c *Client) GetUserPermissions(ctx context.Context, userID string) (*UserPermissions, error) {
	return send[UserPermissions](ctx, c, call{op: "user_roles.user_permissions", method: http.MethodGet, route: "/user-roles/user/{id}/permissions", path: id("id", userID)})
}

// UserRoleExists reports whether the user holds the role.
func (c *Client) UserRoleExists(ctx context.Context, userID, roleID string) (bool, error) {
	res, err := send[existsResponse](ctx, c, call{
		op: "user_roles.exists", method: http.MethodGet, route: "/user-roles/user/{userId}/role/{roleId}/exists",
		path: map[string]string{"userId": userID, "roleId": roleID},
	})
	if err != nil {
		return false, err
	}
	return res.Exists, nil
}

// DeleteUserRole removes one link.
func (c *Client) DeleteUserRole(ctx context.Context, userID, roleID string) error {
	_, err := send[successResponse](ctx, c, call{
		op: "user_roles.delete", method: http.MethodDelete, route: "/user-roles/{userId}/{roleId}",
		path: map[string]string{"userId": userID, "roleId": roleID},
	})
	return err
}
