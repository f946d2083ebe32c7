package shared

// Organization structure permissions declared for RBAC.
const (
	PermOrgUnitsView   = "org.units.view"
	PermOrgUnitsUpdate = "org.units.update"
	PermOrgUnitsDelete = "org.units.delete"
)

// OrgScopes lists all permissions related to the org-structure module.
func OrgScopes() []string {
	return []string{
		PermOrgUnitsView,
		PermOrgUnitsUpdate,
		PermOrgUnitsDelete,
	}
}
