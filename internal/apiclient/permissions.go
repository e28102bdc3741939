package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/rbac-console/rbac-console/internal/table"
)

// PermissionFilterKeys are the list filters forwarded for permissions.
var PermissionFilterKeys = []string{"resource", "action"}

// Permission is a (resource, action) pair known to the API.
type Permission struct {
	ID          string     `json:"id"`
	Resource    string     `json:"resource"`
	Action      string     `json:"action"`
	Description string     `json:"description,omitempty"`
	IsPublic    bool       `json:"isPublic,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// PermissionPage is one page of permissions.
type PermissionPage struct {
	Permissions []Permission           `json:"permissions"`
	Pagination  table.ServerPagination `json:"pagination"`
}

// CreatePermissionRequest creates a permission.
type CreatePermissionRequest struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	IsPublic    bool   `json:"isPublic"`
}

// UpdatePermissionRequest updates the mutable fields of a permission.
type UpdatePermissionRequest struct {
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type permissionEnvelope struct {
	Permission Permission `json:"permission"`
}

type countResponse struct {
	Count int64 `json:"count,string"`
}

type dataFilterResponse struct {
	Resources []string `json:"resources"`
}

// ListPermissions returns one page of permissions filtered by resource and action.
func (c *Client) ListPermissions(ctx context.Context, q table.ListQuery) (*PermissionPage, error) {
	return send[PermissionPage](ctx, c, call{op: "permissions.list", method: http.MethodGet, route: "/permissions", query: listParams(q, PermissionFilterKeys...).values()})
}

// GetPermission loads one permission.
func (c *Client) GetPermission(ctx context.Context, permissionID string) (*Permission, error) {
	res, err := send[permissionEnvelope](ctx, c, call{op: "permissions.get", method: http.MethodGet, route: "/permissions/{id}", path: id("id", permissionID)})
	if err != nil {
		return nil, err
	}
	return &res.Permission, nil
}

// CreatePermission creates a permission.
func (c *Client) CreatePermission(ctx context.Context, in CreatePermissionRequest) (*Permission, error) {
	res, err := send[permissionEnvelope](ctx, c, call{op: "permissions.create", method: http.MethodPost, route: "/permissions", body: in})
	if err != nil {
		return nil, err
	}
	return &res.Permission, nil
}

// UpdatePermission updates a permission.
func (c *Client) UpdatePermission(ctx context.Context, permissionID string, in UpdatePermissionRequest) (*Permission, error) {
	res, err := send[permissionEnvelope](ctx, c, call{op: "permissions.update", method: http.MethodPut, route: "/permissions/{id}", path: id("id", permissionID), body: in})
	if err != nil {
		return nil, err
	}
	return &res.Permission, nil
}

// DeletePermission deletes a permission.
func (c *Client) DeletePermission(ctx context.Context, permissionID string) error {
	_, err := send[successResponse](ctx, c, call{op: "permissions.delete", method: http.MethodDelete, route: "/permissions/{id}", path: id("id", permissionID)})
	return err
}

// CountPermissionsByResource counts the permissions of a resource.
func (c *Client) CountPermissionsByResource(ctx context.Context, resource string) (int64, error) {
	res, err := send[countResponse](ctx, c, call{op: "permissions.count_by_resource", method: http.MethodGet, route: "/permissions/{resource}/count", path: id("resource", resource)})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// DeletePermissionByResourceAndAction deletes the permission matching the pair.
func (c *Client) DeletePermissionByResourceAndAction(ctx context.Context, resource, action string) error {
	_, err := send[successResponse](ctx, c, call{
		op: "permissions.delete_by_pair", method: http.MethodDelete, route: "/permissions/{resource}/{action}",
		path: map[string]string{"resource": resource, "action": action},
	})
	return err
}

// PermissionResources lists the distinct resources used as a list filter.
func (c *Client) PermissionResources(ctx context.Context) ([]string, error) {
	res, err := send[dataFilterResponse](ctx, c, call{op: "permissions.data_filter", method: http.MethodGet, route: "/permissions/data-filter"})
	if err != nil {
		return nil, err
	}
	return res.Resources, nil
}
