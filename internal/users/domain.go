package users

import (
	"strings"

	"github.com/rbac-console/rbac-console/internal/apiclient"
)

// Form is the create/edit user form.
type Form struct {
	FullName string `form:"fullName" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,email"`
	Phone    string `form:"phone" validate:"omitempty,localphone"`
	Password string `form:"password" validate:"omitempty,min=6"`
	Address  string `form:"address" validate:"max=255"`
	Bio      string `form:"bio" validate:"max=500"`
	Status   string `form:"status" validate:"omitempty,oneof=active inactive"`
}

// FormFromUser pre-fills the edit form.
func FormFromUser(u *apiclient.User) Form {
	return Form{
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Address:  u.Address,
		Bio:      u.Bio,
		Status:   u.Status,
	}
}

func (f Form) createRequest() apiclient.CreateUserRequest {
	return apiclient.CreateUserRequest{
		Email:    f.Email,
		Phone:    f.Phone,
		Password: f.Password,
		FullName: f.FullName,
		Address:  f.Address,
		Bio:      f.Bio,
	}
}

func (f Form) updateRequest() apiclient.UpdateUserRequest {
	return apiclient.UpdateUserRequest{
		Email:    f.Email,
		Phone:    f.Phone,
		FullName: f.FullName,
		Address:  f.Address,
		Bio:      f.Bio,
		Status:   f.Status,
	}
}

// LockForm carries the lock reason.
type LockForm struct {
	Reason string `form:"reason" validate:"required,max=255"`
}

func statusKind(status string) string {
	switch status {
	case apiclient.UserActive:
		return "success"
	case apiclient.UserLocked:
		return "danger"
	default:
		return "muted"
	}
}

func roleNames(u apiclient.User) string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
