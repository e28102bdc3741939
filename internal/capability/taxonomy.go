// Package capability turns the flat list of permissions granted to a session
// into a boolean lookup shaped like a static capability taxonomy.
package capability

import (
	"fmt"
	"sort"
)

// Node is an element of a taxonomy: either a Leaf or a Category.
type Node interface {
	node()
}

// Leaf is a single protectable (resource, action) pair.
type Leaf struct {
	Resource string
	Action   string
}

func (Leaf) node() {}

// Grant returns the grant that satisfies the leaf.
func (l Leaf) Grant() Grant {
	return Grant{Resource: l.Resource, Action: l.Action}
}

// Category groups named nodes. Nesting depth is unbounded.
type Category map[string]Node

func (Category) node() {}

// Grant is a (resource, action) pair the auth backend asserts for the session.
type Grant struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// IsLeafValue reports whether an untyped value describes a leaf: a map with
// both "resource" and "action" present and holding strings.
func IsLeafValue(v any) bool {
	switch m := v.(type) {
	case map[string]string:
		_, hasResource := m["resource"]
		_, hasAction := m["action"]
		return hasResource && hasAction
	case map[string]any:
		resource, hasResource := m["resource"]
		action, hasAction := m["action"]
		if !hasResource || !hasAction {
			return false
		}
		_, resourceOK := resource.(string)
		_, actionOK := action.(string)
		return resourceOK && actionOK
	default:
		return false
	}
}

// FromValue converts an untyped tree (as decoded from JSON) into a Category.
func FromValue(v any) (Category, error) {
	n, err := fromValue("", v)
	if err != nil {
		return nil, err
	}
	cat, ok := n.(Category)
	if !ok {
		return nil, fmt.Errorf("capability: taxonomy root must be a category")
	}
	return cat, nil
}

func fromValue(path string, v any) (Node, error) {
	if IsLeafValue(v) {
		switch m := v.(type) {
		case map[string]string:
			return Leaf{Resource: m["resource"], Action: m["action"]}, nil
		case map[string]any:
			return Leaf{Resource: m["resource"].(string), Action: m["action"].(string)}, nil
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("capability: %s: unsupported value of type %T", displayPath(path), v)
	}
	cat := make(Category, len(m))
	for key, child := range m {
		n, err := fromValue(joinPath(path, key), child)
		if err != nil {
			return nil, err
		}
		cat[key] = n
	}
	return cat, nil
}

// Leaves returns every leaf of the category keyed by its dotted path.
func (c Category) Leaves() map[string]Leaf {
	out := make(map[string]Leaf)
	collectLeaves(out, "", c)
	return out
}

// Paths returns the dotted paths of every leaf, sorted.
func (c Category) Paths() []string {
	leaves := c.Leaves()
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func collectLeaves(out map[string]Leaf, prefix string, c Category) {
	for name, n := range c {
		switch v := n.(type) {
		case Leaf:
			out[joinPath(prefix, name)] = v
		case Category:
			collectLeaves(out, joinPath(prefix, name), v)
		}
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
