package capability

// Leaves of the console taxonomy. Resource names are the remote RPC services.
var (
	UserLock   = Leaf{Resource: "user.v1.UserService", Action: "LockUser"}
	UserUnlock = Leaf{Resource: "user.v1.UserService", Action: "UnlockUser"}
	UserEdit   = Leaf{Resource: "user.v1.UserService", Action: "UpdateUser"}
	UserCreate = Leaf{Resource: "user.v1.UserService", Action: "CreateUser"}

	RoleChangeRole        = Leaf{Resource: "user_role.v1.UserRoleService", Action: "AttachUserRoles"}
	RoleAssignPermissions = Leaf{Resource: "role_permission.v1.RolePermissionService", Action: "AttachRolePermissions"}
	RoleDelete            = Leaf{Resource: "role.v1.RoleService", Action: "DeleteRole"}
	RoleEdit              = Leaf{Resource: "role.v1.RoleService", Action: "UpdateRole"}
	RoleCreate            = Leaf{Resource: "role.v1.RoleService", Action: "CreateRole"}

	PermissionEdit = Leaf{Resource: "permission.v1.PermissionService", Action: "UpdatePermission"}
)

// Dotted paths into the default taxonomy.
const (
	PathUserLock   = "USER.LOCK"
	PathUserUnlock = "USER.UNLOCK"
	PathUserEdit   = "USER.EDIT"
	PathUserCreate = "USER.CREATE"

	PathRoleChangeRole        = "ROLE.CHANGE_ROLE"
	PathRoleAssignPermissions = "ROLE.ASSIGN_PERMISSIONS"
	PathRoleDelete            = "ROLE.DELETE"
	PathRoleEdit              = "ROLE.EDIT"
	PathRoleCreate            = "ROLE.CREATE"

	PathPermissionEdit = "PERMISSION.EDIT"
)

var defaultTaxonomy = Category{
	"USER": Category{
		"LOCK":   UserLock,
		"UNLOCK": UserUnlock,
		"EDIT":   UserEdit,
		"CREATE": UserCreate,
	},
	"ROLE": Category{
		"CHANGE_ROLE":        RoleChangeRole,
		"ASSIGN_PERMISSIONS": RoleAssignPermissions,
		"DELETE":             RoleDelete,
		"EDIT":               RoleEdit,
		"CREATE":             RoleCreate,
	},
	"PERMISSION": Category{
		"EDIT": PermissionEdit,
	},
}

// Default returns the console taxonomy. It is shared process-wide and must
// not be modified.
func Default() Category {
	return defaultTaxonomy
}
