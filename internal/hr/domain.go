package hr

import "time"

// Employee statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Assignment types.
const (
	AssignmentAdmin      = "admin"
	AssignmentAcademic   = "academic"
	AssignmentSupport    = "support"
	AssignmentManagement = "management"
)

// Employee links a user account to HR attributes. A user without an employee
// record is a non-staff actor (e.g. a student).
type Employee struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	EmployeeNo     string    `json:"employee_no"`
	FullName       string    `json:"full_name"`
	EmploymentType string    `json:"employment_type"`
	Status         string    `json:"status"`
	HiredAt        time.Time `json:"hired_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// JobPosition is a catalog entry for assignment positions.
type JobPosition struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Assignment links an employee to an org unit with a position and validity
// window. A null EndDate marks the assignment active; typically one
// IsPrimary assignment defines the employee's home unit for scoping.
type Assignment struct {
	ID             int64      `json:"id"`
	EmployeeID     int64      `json:"employee_id"`
	OrgUnitID      int64      `json:"org_unit_id"`
	PositionID     int64      `json:"position_id"`
	IsPrimary      bool       `json:"is_primary"`
	AssignmentType string     `json:"assignment_type"`
	Allocation     float64    `json:"allocation"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// Qualification is an academic or professional credential of an employee.
type Qualification struct {
	ID          int64     `json:"id"`
	EmployeeID  int64     `json:"employee_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Institution string    `json:"institution"`
	AwardedAt   time.Time `json:"awarded_at"`
}

// Training records a completed staff training.
type Training struct {
	ID          int64     `json:"id"`
	EmployeeID  int64     `json:"employee_id"`
	Title       string    `json:"title"`
	Provider    string    `json:"provider"`
	Hours       int       `json:"hours"`
	CompletedAt time.Time `json:"completed_at"`
}

// ScopeFilter restricts employee listings to the caller's accessible units.
// Exactly one interpretation applies: All, a unit-id set, or self-only.
// The restriction composes with search filters inside the query, never as a
// post-hoc filter.
type ScopeFilter struct {
	All        bool
	UnitIDs    []int64
	SelfUserID int64
}

// ListFilters carries paging, search and scope restriction for listings.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
	Scope  ScopeFilter
}
