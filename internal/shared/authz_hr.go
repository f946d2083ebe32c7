package shared

// HR permissions declared for RBAC. The view/update/delete triple per
// resource also drives the tier policy in internal/authz: delete grants
// unrestricted scope, update grants subtree scope.
const (
	PermEmployeesView   = "hr.employees.view"
	PermEmployeesUpdate = "hr.employees.update"
	PermEmployeesDelete = "hr.employees.delete"

	PermAssignmentsView   = "hr.assignments.view"
	PermAssignmentsUpdate = "hr.assignments.update"
	PermAssignmentsDelete = "hr.assignments.delete"

	PermQualificationsView = "hr.qualifications.view"
	PermQualificationsEdit = "hr.qualifications.edit"

	PermTrainingsView = "hr.trainings.view"
	PermTrainingsEdit = "hr.trainings.edit"
)

// HRScopes lists all permissions related to the HR module.
func HRScopes() []string {
	return []string{
		PermEmployeesView,
		PermEmployeesUpdate,
		PermEmployeesDelete,
		PermAssignmentsView,
		PermAssignmentsUpdate,
		PermAssignmentsDelete,
		PermQualificationsView,
		PermQualificationsEdit,
		PermTrainingsView,
		PermTrainingsEdit,
	}
}
