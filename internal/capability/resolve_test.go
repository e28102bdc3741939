package capability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTaxonomy() Category {
	return Category{
		"A": Category{
			"X": Leaf{Resource: "r1", Action: "a1"},
		},
		"B": Leaf{Resource: "r2", Action: "a2"},
	}
}

func assertSameShape(t *testing.T, taxonomy Category, tree map[string]any) {
	t.Helper()
	require.Len(t, tree, len(taxonomy))
	for name, n := range taxonomy {
		got, ok := tree[name]
		require.True(t, ok, "missing key %s", name)
		switch v := n.(type) {
		case Leaf:
			_, isBool := got.(bool)
			assert.True(t, isBool, "leaf %s should be bool, got %T", name, got)
		case Category:
			sub, isMap := got.(map[string]any)
			require.True(t, isMap, "category %s should be a map, got %T", name, got)
			assertSameShape(t, v, sub)
		}
	}
}

func TestResolveMatchesExactGrant(t *testing.T) {
	m := Resolve(sampleTaxonomy(), []Grant{{Resource: "r1", Action: "a1"}})

	assert.Equal(t, map[string]any{
		"A": map[string]any{"X": true},
		"B": false,
	}, m.Tree())
	assert.True(t, m.Allowed("A", "X"))
	assert.True(t, m.AllowedPath("A.X"))
	assert.False(t, m.Allowed("A.X"))
	assert.False(t, m.AllowedPath(""))
	assert.False(t, m.Allowed("B"))
}

func TestAllowedTreatsDottedKeyAsOneName(t *testing.T) {
	tax := Category{
		"user.v1": Category{
			"lock": Leaf{Resource: "user.v1.UserService", Action: "LockUser"},
		},
		"a.b": Leaf{Resource: "r", Action: "a"},
	}
	m := Resolve(tax, []Grant{{Resource: "user.v1.UserService", Action: "LockUser"}, {Resource: "r", Action: "a"}})

	assert.True(t, m.Allowed("user.v1", "lock"))
	assert.True(t, m.Allowed("a.b"))
	assert.False(t, m.AllowedPath("a.b"))
	assert.False(t, m.AllowedPath("user.v1.lock"))
}

func TestResolveRejectsPartialMatch(t *testing.T) {
	m := Resolve(sampleTaxonomy(), []Grant{{Resource: "r1", Action: "WRONG"}, {Resource: "R2", Action: "a2"}})
	assert.False(t, m.Allowed("A", "X"))
	assert.False(t, m.Allowed("B"))
}

func TestResolveNilAndEmptyGrantsKeepShape(t *testing.T) {
	taxonomies := []Category{
		sampleTaxonomy(),
		Default(),
		{},
		{"deep": Category{"er": Category{"still": Category{"leaf": Leaf{Resource: "r", Action: "a"}}}}},
	}
	for _, tax := range taxonomies {
		for _, granted := range [][]Grant{nil, {}} {
			m := Resolve(tax, granted)
			tree := m.Tree()
			assertSameShape(t, tax, tree)
			assert.Empty(t, m.Granted())
		}
	}
}

func TestResolveUnboundedDepth(t *testing.T) {
	tax := Category{
		"L1": Category{
			"L2": Category{
				"L3": Category{
					"GO": Leaf{Resource: "svc", Action: "Go"},
				},
			},
			"NEAR": Leaf{Resource: "svc", Action: "Near"},
		},
	}
	m := Resolve(tax, []Grant{{Resource: "svc", Action: "Go"}})
	assert.True(t, m.Allowed("L1", "L2", "L3", "GO"))
	assert.False(t, m.Allowed("L1", "NEAR"))
	assert.False(t, m.Allowed("L1", "L2"), "a category is never allowed")
	assert.Equal(t, []string{"L1.L2.L3.GO"}, m.Granted())
}

func TestResolveMatchesEmptyFieldsExactly(t *testing.T) {
	tax := Category{
		"EMPTY":     Leaf{},
		"NO_ACTION": Leaf{Resource: "r"},
		"OK":        Leaf{Resource: "r", Action: "a"},
	}

	m := Resolve(tax, []Grant{{Resource: "r", Action: "a"}, {Resource: "r", Action: "a"}})
	assert.False(t, m.Allowed("EMPTY"))
	assert.False(t, m.Allowed("NO_ACTION"))
	assert.True(t, m.Allowed("OK"))

	m = Resolve(tax, []Grant{{}, {Resource: "r"}})
	assert.True(t, m.Allowed("EMPTY"))
	assert.True(t, m.Allowed("NO_ACTION"))
	assert.False(t, m.Allowed("OK"))
}

func TestMapUnknownPaths(t *testing.T) {
	var zero Map
	assert.False(t, zero.Allowed("USER", "LOCK"))
	assert.False(t, zero.Allowed())
	assert.Empty(t, zero.Keys())

	m := Resolve(Default(), []Grant{{Resource: "role.v1.RoleService", Action: "DeleteRole"}})
	assert.True(t, m.AllowedPath(PathRoleDelete))
	assert.False(t, m.Allowed("ROLE", "MISSING"))
	assert.False(t, m.Allowed("NOPE", "DELETE"))
	assert.True(t, m.Sub("ROLE").Allowed("DELETE"))
	assert.True(t, m.Sub("ROLE").IsLeaf("DELETE"))
	assert.Equal(t, []string{"PERMISSION", "ROLE", "USER"}, m.Keys())
}

func TestMapMarshalJSON(t *testing.T) {
	m := Resolve(sampleTaxonomy(), []Grant{{Resource: "r2", Action: "a2"}})
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":{"X":false},"B":true}`, string(data))
}

func TestDefaultTaxonomyPaths(t *testing.T) {
	paths := Default().Paths()
	assert.Equal(t, []string{
		PathPermissionEdit,
		PathRoleAssignPermissions,
		PathRoleChangeRole,
		PathRoleCreate,
		PathRoleDelete,
		PathRoleEdit,
		PathUserCreate,
		PathUserEdit,
		PathUserLock,
		PathUserUnlock,
	}, paths)
}

func TestIsLeafValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want bool
	}{
		{"leaf", map[string]any{"resource": "r", "action": "a"}, true},
		{"leaf with extras", map[string]any{"resource": "r", "action": "a", "note": 1}, true},
		{"string map", map[string]string{"resource": "r", "action": "a"}, true},
		{"missing action", map[string]any{"resource": "r"}, false},
		{"non-string action", map[string]any{"resource": "r", "action": 7}, false},
		{"category holding leaves", map[string]any{"resource": map[string]any{"resource": "r", "action": "a"}, "action": map[string]any{}}, false},
		{"scalar", "resource", false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsLeafValue(tc.in))
		})
	}
}

func TestFromValue(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{
		"A": {"X": {"resource": "r1", "action": "a1"}},
		"B": {"resource": "r2", "action": "a2"}
	}`), &raw))

	tax, err := FromValue(raw)
	require.NoError(t, err)
	assert.Equal(t, sampleTaxonomy(), tax)

	_, err = FromValue(map[string]any{"A": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A")

	_, err = FromValue(map[string]any{"resource": "r", "action": "a"})
	require.Error(t, err, "a bare leaf is not a taxonomy")
}
