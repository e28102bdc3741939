package roles

import (
	"sort"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/table"
)

// Form is the create/edit role form.
type Form struct {
	Name        string `form:"name" validate:"required,max=100"`
	Description string `form:"description" validate:"max=255"`
	Status      string `form:"status" validate:"omitempty,oneof=active inactive"`
}

// FormFromRole pre-fills the edit form.
func FormFromRole(r *apiclient.Role) Form {
	return Form{Name: r.Name, Description: r.Description, Status: r.Status}
}

func (f Form) input(createdBy string) apiclient.RoleInput {
	return apiclient.RoleInput{
		Name:        f.Name,
		Description: f.Description,
		Status:      f.Status,
		CreatedBy:   createdBy,
	}
}

// Draft is the permission selection of one role while it is being edited.
// Seed holds what the API reported when the draft was opened.
type Draft struct {
	Seed  []string             `json:"seed"`
	State table.SelectionState `json:"state"`
}

// NewDraft starts a draft with seed selected.
func NewDraft(seed []string) Draft {
	state := make(table.SelectionState, len(seed))
	for _, id := range seed {
		state[id] = true
	}
	return Draft{Seed: seed, State: state}
}

// Changes returns the permissions to attach and to detach, sorted.
func (d Draft) Changes() (added, removed []string) {
	seeded := make(map[string]bool, len(d.Seed))
	for _, id := range d.Seed {
		seeded[id] = true
		if !d.State[id] {
			removed = append(removed, id)
		}
	}
	for id, on := range d.State {
		if on && !seeded[id] {
			added = append(added, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Count returns the number of selected permissions.
func (d Draft) Count() int {
	n := 0
	for _, on := range d.State {
		if on {
			n++
		}
	}
	return n
}

func statusKind(status string) string {
	if status == apiclient.RoleInactive {
		return "muted"
	}
	return "success"
}
