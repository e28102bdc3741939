package permissions

import "github.com/rbac-console/rbac-console/internal/apiclient"

// Form is the edit-permission form. Resource and action are fixed once a
// permission exists.
type Form struct {
	Description string `form:"description" validate:"max=255"`
	IsPublic    bool   `form:"isPublic"`
}

// FormFromPermission pre-fills the edit form.
func FormFromPermission(p *apiclient.Permission) Form {
	return Form{Description: p.Description, IsPublic: p.IsPublic}
}

// available returns the roles of all that are not in held, keeping order.
func available(all, held []apiclient.Role) []apiclient.Role {
	holding := make(map[string]bool, len(held))
	for _, r := range held {
		holding[r.ID] = true
	}
	var out []apiclient.Role
	for _, r := range all {
		if !holding[r.ID] {
			out = append(out, r)
		}
	}
	return out
}
