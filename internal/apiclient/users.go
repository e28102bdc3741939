package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/rbac-console/rbac-console/internal/table"
)

// User statuses.
const (
	UserActive   = "active"
	UserInactive = "inactive"
	UserLocked   = "locked"
)

// UserFilterKeys are the list filters forwarded for users.
var UserFilterKeys = []string{"status", "fromDate", "toDate"}

// User is a console-managed account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	FullName     string     `json:"fullName"`
	Avatar       string     `json:"avatar,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	Address      string     `json:"address,omitempty"`
	Status       string     `json:"status"`
	CreatedBy    string     `json:"createdBy,omitempty"`
	IsSystem     bool       `json:"isSystem,omitempty"`
	LockedReason string     `json:"lockedReason,omitempty"`
	LockedBy     string     `json:"lockedBy,omitempty"`
	LockedAt     *time.Time `json:"lockedAt,omitempty"`
	Verified     *time.Time `json:"verified,omitempty"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	Roles        []Role     `json:"roles,omitempty"`
}

// RoleIDs returns the ids of the user's roles.
func (u User) RoleIDs() []string {
	ids := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		ids = append(ids, r.ID)
	}
	return ids
}

// UserPage is one page of users.
type UserPage struct {
	Users      []User                 `json:"users"`
	Pagination table.ServerPagination `json:"pagination"`
}

// CreateUserRequest creates a user.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
	FullName string `json:"fullName"`
	Address  string `json:"address,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// UpdateUserRequest updates a user. RoleIDs replaces the user's roles when set.
type UpdateUserRequest struct {
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	FullName string   `json:"fullName,omitempty"`
	Address  string   `json:"address,omitempty"`
	Bio      string   `json:"bio,omitempty"`
	Status   string   `json:"status,omitempty"`
	RoleIDs  []string `json:"roleIds,omitempty"`
}

type userEnvelope struct {
	User User `json:"user"`
}

type updateUserEnvelope struct {
	UserInfo UserInfo `json:"userInfo"`
}

// ListUsers returns one page of users filtered by status and creation range.
func (c *Client) ListUsers(ctx context.Context, q table.ListQuery) (*UserPage, error) {
	return send[UserPage](ctx, c, call{op: "users.list", method: http.MethodGet, route: "/users", query: listParams(q, UserFilterKeys...).values()})
}

// GetUser loads one user.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	res, err := send[userEnvelope](ctx, c, call{op: "users.get", method: http.MethodGet, route: "/users/{id}", path: id("id", userID)})
	if err != nil {
		return nil, err
	}
	return &res.User, nil
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	res, err := send[userEnvelope](ctx, c, call{op: "users.create", method: http.MethodPost, route: "/users", body: in})
	if err != nil {
		return nil, err
	}
	return &res.User, nil
}

// UpdateUser updates a user.
func (c *Client) UpdateUser(ctx context.Context, userID string, in UpdateUserRequest) (*UserInfo, error) {
	res, err := send[updateUserEnvelope](ctx, c, call{op: "users.update", method: http.MethodPut, route: "/users/{id}", path: id("id", userID), body: in})
	if err != nil {
		return nil, err
	}
	return &res.UserInfo, nil
}

// LockUser locks a user with a reason.
func (c *Client) LockUser(ctx context.Context, userID, reason string) error {
	_, err := send[MessageResponse](ctx, c, call{op: "users.lock", method: http.MethodPut, route: "/users/{id}/lock", path: id("id", userID), body: map[string]string{"reason": reason}})
	return err
}

// UnlockUser unlocks a user.
func (c *Client) UnlockUser(ctx context.Context, userID string) error {
	_, err := send[MessageResponse](ctx, c, call{op: "users.unlock", method: http.MethodPut, route: "/users/{id}/unlock", path: id("id", userID)})
	return err
}
