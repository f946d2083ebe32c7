package shared

// Core platform permissions.
const (
	PermUsersView = "core.users.view"
	PermUsersEdit = "core.users.edit"

	PermRolesView = "core.roles.view"
	PermRolesEdit = "core.roles.edit"

	PermPermissionsView = "core.permissions.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
	}
}
