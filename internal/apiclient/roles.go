package apiclient

import (
	"context"
	"net/http"
	"time"
)

// Role statuses.
const (
	RoleActive   = "active"
	RoleInactive = "inactive"
)

// Role groups permissions.
type Role struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Variant     string     `json:"variant,omitempty"`
	Status      string     `json:"status,omitempty"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// RoleFilter narrows the role list.
type RoleFilter struct {
	Search string
	Status string
}

// RoleInput creates or updates a role.
type RoleInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
}

type rolesEnvelope struct {
	Roles []Role `json:"roles"`
}

type roleEnvelope struct {
	Role Role `json:"role"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListRoles returns every role; the API does not paginate roles.
func (c *Client) ListRoles(ctx context.Context, f RoleFilter) ([]Role, error) {
	q := params{"search": f.Search, "status": f.Status}.values()
	res, err := send[rolesEnvelope](ctx, c, call{op: "roles.list", method: http.MethodGet, route: "/roles", query: q})
	if err != nil {
		return nil, err
	}
	return res.Roles, nil
}

// GetRole loads one role.
func (c *Client) GetRole(ctx context.Context, roleID string) (*Role, error) {
	res, err := send[roleEnvelope](ctx, c, call{op: "roles.get", method: http.MethodGet, route: "/roles/{id}", path: id("id", roleID)})
	if err != nil {
		return nil, err
	}
	return &res.Role, nil
}

// CreateRole creates a role.
func (c *Client) CreateRole(ctx context.Context, in RoleInput) error {
	_, err := send[successResponse](ctx, c, call{op: "roles.create", method: http.MethodPost, route: "/roles", body: in})
	return err
}

// UpdateRole updates a role.
func (c *Client) UpdateRole(ctx context.Context, roleID string, in RoleInput) (*Role, error) {
	res, err := send[roleEnvelope](ctx, c, call{op: "roles.update", method: http.MethodPut, route: "/roles/{id}", path: id("id", roleID), body: in})
	if err != nil {
		return nil, err
	}
	return &res.Role, nil
}

// DeleteRole deletes a role.
func (c *Client) DeleteRole(ctx context.Context, roleID string) error {
	_, err := send[successResponse](ctx, c, call{op: "roles.delete", method: http.MethodDelete, route: "/roles/{id}", path: id("id", roleID)})
	return err
}

// RoleExists reports whether a role with name exists.
func (c *Client) RoleExists(ctx context.Context, name string) (bool, error) {
	res, err := send[existsResponse](ctx, c, call{op: "roles.check_exist", method: http.MethodPost, route: "/roles/check-exist", body: map[string]string{"name": name}})
	if err != nil {
		return false, err
	}
	return res.Exists, nil
}
