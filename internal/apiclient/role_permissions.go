package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/rbac-console/rbac-console/internal/table"
)

// RolePermissionFilterKeys are the list filters forwarded for role-permission links.
var RolePermissionFilterKeys = []string{"roleId", "permissionId"}

// RolePermission links a role to a permission.
type RolePermission struct {
	RoleID       string     `json:"roleId"`
	PermissionID string     `json:"permissionId"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// RolePermissionPage is one page of role-permission links.
type RolePermissionPage struct {
	RolePermissions []RolePermission       `json:"rolePermissions"`
	Pagination      table.ServerPagination `json:"pagination"`
}

type rolePermissionEnvelope struct {
	RolePermission RolePermission `json:"rolePermission"`
}

type rolePermissionsEnvelope struct {
	RolePermissions []RolePermission `json:"rolePermissions"`
}

// ListRolePermissions returns one page of links filtered by role or permission.
func (c *Client) ListRolePermissions(ctx context.Context, q table.ListQuery) (*RolePermissionPage, error) {
	return send[RolePermissionPage](ctx, c, call{op: "role_permissions.list", method: http.MethodGet, route: "/role-permissions", query: listParams(q, RolePermissionFilterKeys...).values()})
}

// CreateRolePermission links one role to one permission.
func (c *Client) CreateRolePermission(ctx context.Context, roleID, permissionID string) (*RolePermission, error) {
	res, err := send[rolePermissionEnvelope](ctx, c, call{
		op: "role_permissions.create", method: http.MethodPost, route: "/role-permissions",
		body: map[string]string{"roleId": roleID, "permissionId": permissionID},
	})
	if err != nil {
		return nil, err
	}
	return &res.RolePermission, nil
}

// AttachRolePermissions links every role to every permission.
func (c *Client) AttachRolePermissions(ctx context.Context, roleIDs, permissionIDs []string) ([]RolePermission, error) {
	res, err := send[rolePermissionsEnvelope](ctx, c, call{
		op: "role_permissions.attach", method: http.MethodPost, route: "/role-permissions/attach",
		body: map[string][]string{"roleIds": nonNil(roleIDs), "permissionIds": nonNil(permissionIDs)},
	})
	if err != nil {
		return nil, err
	}
	return res.RolePermissions, nil
}

// DetachRolesFromPermission removes the permission from each role.
func (c *Client) DetachRolesFromPermission(ctx context.Context, roleIDs []string, permissionID string) error {
	_, err := send[MessageResponse](ctx, c, call{
		op: "role_permissions.bulk_delete", method: http.MethodPost, route: "/role-permissions/bulk-delete",
		body: map[string]any{"roleIds": nonNil(roleIDs), "permissionId": permissionID},
	})
	return err
}

// DeleteRolePermissionsByPermission removes the permission from every role.
func (c *Client) DeleteRolePermissionsByPermission(ctx context.Context, permissionID string) error {
	_, err := send[successResponse](ctx, c, call{op: "role_permissions.delete_by_permission", method: http.MethodDelete, route: "/role-permissions/permission/{id}", path: id("id", permissionID)})
	return err
}

// RolesByPermission lists the roles holding a permission.
func (c *Client) RolesByPermission(ctx context.Context, permissionID string) ([]Role, error) {
	res, err := send[rolesEnvelope](ctx, c, call{op: "role_permissions.roles_by_permission", method: http.MethodGet, route: "/role-permissions/permission/{id}/roles", path: id("id", permissionID)})
	if err != nil {
		return nil, err
	}
	return res.Roles, nil
}

// DeleteRolePermission removes one link.
func (c *Client) DeleteRolePermission(ctx context.Context, roleID, permissionID string) error {
	_, err := send[successResponse](ctx, c, call{
		op: "role_permissions.delete", method: http.MethodDelete, route: "/role-permissions/{roleId}/{permissionId}",
		path: map[string]string{"roleId": roleID, "permissionId": permissionID},
	})
	return err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
