package apiclient

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/rbac-console/rbac-console/internal/table"
)

// params is a nested query object. Nested maps are flattened with dots, so
// {"pagination": {"page": 1}} becomes pagination.page=1.
type params map[string]any

func (p params) values() url.Values {
	out := url.Values{}
	flatten(out, "", p)
	return out
}

func flatten(out url.Values, prefix string, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		switch v := obj[k].(type) {
		case nil:
		case params:
			flatten(out, full, v)
		case map[string]any:
			flatten(out, full, v)
		case map[string]string:
			nested := make(map[string]any, len(v))
			for nk, nv := range v {
				nested[nk] = nv
			}
			flatten(out, full, nested)
		case []string:
			for _, item := range v {
				out.Add(full, item)
			}
		case string:
			if v != "" {
				out.Set(full, v)
			}
		default:
			out.Set(full, fmt.Sprint(v))
		}
	}
}

// listParams builds the pagination and filter blocks of a list request. Only
// the named filter keys are forwarded.
func listParams(q table.ListQuery, filterKeys ...string) params {
	pagination := params{
		"page":      q.Page,
		"pageSize":  q.PageSize,
		"sortBy":    q.SortBy,
		"sortOrder": q.SortOrder,
		"search":    q.Search,
	}
	p := params{"pagination": pagination}
	filter := params{}
	for _, k := range filterKeys {
		if v := q.Filter(k); v != "" {
			filter[k] = v
		}
	}
	if len(filter) > 0 {
		p["filter"] = filter
	}
	return p
}
