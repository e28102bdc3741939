package table

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const maxPageSize = 100

// Sort orders accepted by the remote API.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListQuery is the list state of a page: pagination, sort, search and entity
// filters. Values are immutable; every transition returns a copy.
type ListQuery struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Search    string
	Filters   map[string]string
}

// DefaultListQuery is page 1 of 10 ordered by id descending.
func DefaultListQuery() ListQuery {
	return ListQuery{Page: 1, PageSize: DefaultPageSize, SortBy: "id", SortOrder: SortDesc}
}

// ParseListQuery reads a query from request values. Only the named filter
// keys are kept; invalid numbers fall back to defaults.
func ParseListQuery(values url.Values, defaults ListQuery, filterKeys ...string) ListQuery {
	q := defaults.clone()
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page >= 1 {
		q.Page = page
	}
	if size, err := strconv.Atoi(values.Get("pageSize")); err == nil && size >= 1 {
		q.PageSize = min(size, maxPageSize)
	}
	if sortBy := strings.TrimSpace(values.Get("sortBy")); sortBy != "" {
		q.SortBy = sortBy
	}
	switch order := strings.ToLower(values.Get("sortOrder")); order {
	case SortAsc, SortDesc:
		q.SortOrder = order
	}
	q.Search = strings.TrimSpace(values.Get("search"))
	for _, key := range filterKeys {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			if q.Filters == nil {
				q.Filters = map[string]string{}
			}
			q.Filters[key] = v
		}
	}
	return q
}

// Filter returns the value of a filter or "".
func (q ListQuery) Filter(key string) string {
	return q.Filters[key]
}

// Next moves one page forward.
func (q ListQuery) Next() ListQuery {
	q = q.clone()
	q.Page = max(q.Page, 0) + 1
	return q
}

// Previous moves one page back, never below the first page.
func (q ListQuery) Previous() ListQuery {
	q = q.clone()
	q.Page = max(q.Page-1, 1)
	return q
}

// WithPage jumps to a 1-indexed page.
func (q ListQuery) WithPage(page int) ListQuery {
	q = q.clone()
	q.Page = max(page, 1)
	return q
}

// WithSearch sets the search term and returns to the first page.
func (q ListQuery) WithSearch(search string) ListQuery {
	q = q.clone()
	q.Search = strings.TrimSpace(search)
	q.Page = 1
	return q
}

// WithFilter sets or clears a filter and returns to the first page.
func (q ListQuery) WithFilter(key, value string) ListQuery {
	q = q.clone()
	if value == "" {
		delete(q.Filters, key)
	} else {
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		q.Filters[key] = value
	}
	q.Page = 1
	return q
}

// Reset discards pagination, search and filters.
func (q ListQuery) Reset(defaults ListQuery) ListQuery {
	return defaults.clone()
}

// Values encodes the query for links back to the same page.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sortOrder", q.SortOrder)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Set(k, q.Filters[k])
	}
	return v
}

// Link returns a page-link builder for path that keeps the rest of the query.
func (q ListQuery) Link(path string) func(page int) string {
	return func(page int) string {
		return path + "?" + q.WithPage(page).Values().Encode()
	}
}

func (q ListQuery) clone() ListQuery {
	if q.Filters != nil {
		filters := make(map[string]string, len(q.Filters))
		for k, v := range q.Filters {
			filters[k] = v
		}
		q.Filters = filters
	}
	return q
}
