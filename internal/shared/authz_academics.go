package shared

// Academic catalog permissions declared for RBAC.
const (
	PermProgramsView   = "academics.programs.view"
	PermProgramsUpdate = "academics.programs.update"
	PermProgramsDelete = "academics.programs.delete"

	PermCoursesView   = "academics.courses.view"
	PermCoursesUpdate = "academics.courses.update"
	PermCoursesDelete = "academics.courses.delete"
)

// AcademicsScopes lists all permissions related to the academic catalog.
func AcademicsScopes() []string {
	return []string{
		PermProgramsView,
		PermProgramsUpdate,
		PermProgramsDelete,
		PermCoursesView,
		PermCoursesUpdate,
		PermCoursesDelete,
	}
}
