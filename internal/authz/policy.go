package authz

import (
	"strings"

	"github.com/univera/univera/internal/shared"
)

// ResourcePolicy names the permissions that widen a user's scope for one
// resource. Holding any admin permission grants unrestricted scope; holding
// any manage permission grants the subtrees of the user's active org
// assignments. The mapping is configuration, not convention: a resource may
// route any permission into either tier.
type ResourcePolicy struct {
	Resource          string
	AdminPermissions  []string
	ManagePermissions []string
}

// DefaultPolicies wires the declared permission catalog into tier policies.
// The view/update/delete triples follow one pattern: delete is the admin
// marker, update the manager marker. Edit-only resources never reach tier 1.
func DefaultPolicies() []ResourcePolicy {
	return []ResourcePolicy{
		{
			Resource:          "hr.employees",
			AdminPermissions:  []string{shared.PermEmployeesDelete},
			ManagePermissions: []string{shared.PermEmployeesUpdate},
		},
		{
			Resource:          "hr.assignments",
			AdminPermissions:  []string{shared.PermAssignmentsDelete},
			ManagePermissions: []string{shared.PermAssignmentsUpdate},
		},
		{
			Resource:          "hr.qualifications",
			ManagePermissions: []string{shared.PermQualificationsEdit},
		},
		{
			Resource:          "hr.trainings",
			ManagePermissions: []string{shared.PermTrainingsEdit},
		},
		{
			Resource:          "academics.programs",
			AdminPermissions:  []string{shared.PermProgramsDelete},
			ManagePermissions: []string{shared.PermProgramsUpdate},
		},
		{
			Resource:          "academics.courses",
			AdminPermissions:  []string{shared.PermCoursesDelete},
			ManagePermissions: []string{shared.PermCoursesUpdate},
		},
	}
}

// ResourceOf derives the resource key from a permission code by dropping the
// trailing action segment: "hr.employees.update" -> "hr.employees". Codes
// without an action segment map to themselves.
func ResourceOf(permissionCode string) string {
	idx := strings.LastIndex(permissionCode, ".")
	if idx <= 0 {
		return permissionCode
	}
	return permissionCode[:idx]
}
