package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/rbac-console/rbac-console/internal/table"
)

// ResourcePermissionFilterKeys are the list filters forwarded for resource permissions.
var ResourcePermissionFilterKeys = []string{"userId", "resourceType", "action"}

// ResourcePermission grants a user an action on specific resource data.
type ResourcePermission struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	ResourceType string            `json:"resourceType"`
	ResourceData map[string]string `json:"resourceData,omitempty"`
	Action       string            `json:"action"`
	CreatedAt    *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty"`
}

// ResourcePermissionInput creates or updates a resource permission.
type ResourcePermissionInput struct {
	UserID       string            `json:"userId"`
	ResourceType string            `json:"resourceType"`
	ResourceData map[string]string `json:"resourceData,omitempty"`
	Action       string            `json:"action"`
}

// ResourcePermissionPage is one page of resource permissions.
type ResourcePermissionPage struct {
	ResourcePermissions []ResourcePermission   `json:"resourcePermissions"`
	Pagination          table.ServerPagination `json:"pagination"`
}

type resourcePermissionEnvelope struct {
	ResourcePermission ResourcePermission `json:"resourcePermission"`
}

type resourcePermissionsEnvelope struct {
	ResourcePermissions []ResourcePermission `json:"resourcePermissions"`
}

// ListResourcePermissions returns one page filtered by user, type and action.
// data narrows by resource data keys and may be nil.
func (c *Client) ListResourcePermissions(ctx context.Context, q table.ListQuery, data map[string]string) (*ResourcePermissionPage, error) {
	p := listParams(q, ResourcePermissionFilterKeys...)
	if len(data) > 0 {
		filter, _ := p["filter"].(params)
		if filter == nil {
			filter = params{}
		}
		filter["resourceData"] = data
		p["filter"] = filter
	}
	return send[ResourcePermissionPage](ctx, c, call{op: "resource_permissions.list", method: http.MethodGet, route: "/resource-permissions", query: p.values()})
}

// CreateResourcePermission creates one grant.
func (c *Client) CreateResourcePermission(ctx context.Context, in ResourcePermissionInput) (*ResourcePermission, error) {
	res, err := send[resourcePermissionEnvelope](ctx, c, call{op: "resource_permissions.create", method: http.MethodPost, route: "/resource-permissions", body: in})
	if err != nil {
		return nil, err
	}
	return &res.ResourcePermission, nil
}

// CreateManyResourcePermissions creates several grants at once.
func (c *Client) CreateManyResourcePermissions(ctx context.Context, in []ResourcePermissionInput) ([]ResourcePermission, error) {
	res, err := send[resourcePermissionsEnvelope](ctx, c, call{
		op: "resource_permissions.create_many", method: http.MethodPost, route: "/resource-permissions/many",
		body: map[string]any{"resourcePermissions": in},
	})
	if err != nil {
		return nil, err
	}
	return res.ResourcePermissions, nil
}

// GetResourcePermission loads one grant.
func (c *Client) GetResourcePermission(ctx context.Context, grantID string) (*ResourcePermission, error) {
	res, err := send[resourcePermissionEnvelope](ctx, c, call{op: "resource_permissions.get", method: http.MethodGet, route: "/resource-permissions/{id}", path: id("id", grantID)})
	if err != nil {
		return nil, err
	}
	return &res.ResourcePermission, nil
}

// UpdateResourcePermission updates one grant.
func (c *Client) UpdateResourcePermission(ctx context.Context, grantID string, in ResourcePermissionInput) (*ResourcePermission, error) {
	res, err := send[resourcePermissionEnvelope](ctx, c, call{op: "resource_permissions.update", method: http.MethodPut, route: "/resource-permissions/{id}", path: id("id", grantID), body: in})
	if err != nil {
		return nil, err
	}
	return &res.ResourcePermission, nil
}

// DeleteResourcePermission deletes one grant.
func (c *Client) DeleteResourcePermission(ctx context.Context, grantID string) error {
	_, err := send[successResponse](ctx, c, call{op: "resource_permissions.delete", method: http.MethodDelete, route: "/resource-permissions/{id}", path: id("id", grantID)})
	return err
}

// DeleteResourcePermissionsByUser deletes every grant of a user.
func (c *Client) DeleteResourcePermissionsByUser(ctx context.Context, userID string) error {
	_, err := send[successResponse](ctx, c, call{op: "resource_permissions.delete_by_user", method: http.MethodDelete, route: "/resource-permissions/user/{id}", path: id("id", userID)})
	return err
}
