package capability

import (
	"encoding/json"
	"sort"
	"strings"
)

// Map mirrors a Category with every leaf replaced by a boolean. The zero value
// is an empty map in which every lookup is false.
type Map struct {
	leaves map[string]bool
	nested map[string]Map
}

// Resolve computes the capability map for the granted permissions. A nil
// granted list behaves like an empty one. Matching is exact and
// case-sensitive on both fields, empty strings included.
func Resolve(taxonomy Category, granted []Grant) Map {
	index := make(map[Grant]struct{}, len(granted))
	for _, g := range granted {
		index[g] = struct{}{}
	}
	return resolve(taxonomy, index)
}

func resolve(c Category, index map[Grant]struct{}) Map {
	m := Map{
		leaves: make(map[string]bool),
		nested: make(map[string]Map),
	}
	for name, n := range c {
		switch v := n.(type) {
		case Leaf:
			_, ok := index[Grant{Resource: v.Resource, Action: v.Action}]
			m.leaves[name] = ok
		case Category:
			m.nested[name] = resolve(v, index)
		default:
			// nil node: keep the key as an empty category.
			m.nested[name] = Map{}
		}
	}
	return m
}

// Allowed walks the path and reports whether it ends on a granted leaf.
// Unknown paths and paths ending on a category are false. Each element is
// one key, dots included.
func (m Map) Allowed(path ...string) bool {
	if len(path) == 0 {
		return false
	}
	cur := m
	for _, name := range path[:len(path)-1] {
		next, ok := cur.nested[name]
		if !ok {
			return false
		}
		cur = next
	}
	return cur.leaves[path[len(path)-1]]
}

// AllowedPath is Allowed for a dotted path such as "USER.LOCK".
func (m Map) AllowedPath(dotted string) bool {
	if dotted == "" {
		return false
	}
	return m.Allowed(strings.Split(dotted, ".")...)
}

// Sub returns the nested map under name, or an empty map.
func (m Map) Sub(name string) Map {
	return m.nested[name]
}

// IsLeaf reports whether name is a leaf at this level.
func (m Map) IsLeaf(name string) bool {
	_, ok := m.leaves[name]
	return ok
}

// Keys returns the names at this level, sorted.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m.leaves)+len(m.nested))
	for k := range m.leaves {
		keys = append(keys, k)
	}
	for k := range m.nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Granted returns the dotted paths of every true leaf, sorted.
func (m Map) Granted() []string {
	var out []string
	m.walk("", func(path string, ok bool) {
		if ok {
			out = append(out, path)
		}
	})
	sort.Strings(out)
	return out
}

// Tree returns a plain nested representation (map[string]any with bool
// leaves) suitable for templates and JSON.
func (m Map) Tree() map[string]any {
	out := make(map[string]any, len(m.leaves)+len(m.nested))
	for k, v := range m.leaves {
		out[k] = v
	}
	for k, v := range m.nested {
		out[k] = v.Tree()
	}
	return out
}

// MarshalJSON encodes the map as its tree.
func (m Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Tree())
}

func (m Map) walk(prefix string, fn func(path string, ok bool)) {
	for k, v := range m.leaves {
		fn(joinPath(prefix, k), v)
	}
	for k, v := range m.nested {
		v.walk(joinPath(prefix, k), fn)
	}
}
