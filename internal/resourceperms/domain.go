package resourceperms

import (
	"errors"
	"sort"
	"strings"

	"github.com/rbac-console/rbac-console/internal/apiclient"
)

// ErrResourceData reports a resource data line that is not key=value.
var ErrResourceData = errors.New("use key=value, one per line")

// Form is the grant-access form.
type Form struct {
	UserID       string `form:"userId" validate:"required,max=64"`
	ResourceType string `form:"resourceType" validate:"required,max=100"`
	Action       string `form:"action" validate:"required,max=100"`
	ResourceData string `form:"resourceData" validate:"max=2000"`
}

// ParseResourceData reads key=value pairs, one per line. Blank lines are
// skipped; a repeated key keeps the last value.
func ParseResourceData(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, ErrResourceData
		}
		out[key] = strings.TrimSpace(value)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// FormatResourceData renders data as sorted key=value pairs.
func FormatResourceData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+data[k])
	}
	return strings.Join(parts, ", ")
}

func (f Form) input(data map[string]string) apiclient.ResourcePermissionInput {
	return apiclient.ResourcePermissionInput{
		UserID:       f.UserID,
		ResourceType: f.ResourceType,
		ResourceData: data,
		Action:       f.Action,
	}
}
