package hr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/univera/univera/internal/org"
)

// ErrInvalidInput marks writes rejected by business rules.
var ErrInvalidInput = errors.New("hr: invalid input")

// Service handles HR business logic.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListEmployees returns a scoped, paged employee listing.
func (s *Service) ListEmployees(ctx context.Context, filters ListFilters) ([]Employee, int, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.ListEmployees(ctx, filters)
}

// GetEmployee fetches an employee by ID.
func (s *Service) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// GetEmployeeByUserID fetches the employee record backing a user account.
func (s *Service) GetEmployeeByUserID(ctx context.Context, userID int64) (Employee, error) {
	return s.repo.GetEmployeeByUserID(ctx, userID)
}

// CreateEmployee validates and inserts an employee record.
func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	emp.EmployeeNo = strings.ToUpper(strings.TrimSpace(emp.EmployeeNo))
	emp.FullName = strings.TrimSpace(emp.FullName)
	emp.EmploymentType = strings.ToLower(strings.TrimSpace(emp.EmploymentType))
	if emp.UserID == 0 || emp.EmployeeNo == "" || emp.FullName == "" {
		return Employee{}, fmt.Errorf("%w: user id, employee number and full name required", ErrInvalidInput)
	}
	if emp.Status == "" {
		emp.Status = StatusActive
	}
	if emp.HiredAt.IsZero() {
		emp.HiredAt = s.now()
	}
	return s.repo.CreateEmployee(ctx, emp)
}

// UpdateEmployee updates mutable employee fields.
func (s *Service) UpdateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	emp.FullName = strings.TrimSpace(emp.FullName)
	emp.EmploymentType = strings.ToLower(strings.TrimSpace(emp.EmploymentType))
	if emp.FullName == "" {
		return Employee{}, fmt.Errorf("%w: full name required", ErrInvalidInput)
	}
	return s.repo.UpdateEmployee(ctx, emp)
}

// DeactivateEmployee marks an employee inactive and closes their open
// assignments so the scoping index stops counting them.
func (s *Service) DeactivateEmployee(ctx context.Context, id int64) error {
	emp, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	assignments, err := s.repo.ActiveAssignmentsByUser(ctx, emp.UserID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, a := range assignments {
		if err := s.repo.EndAssignment(ctx, a.ID, now); err != nil {
			return err
		}
	}
	return s.repo.SetEmployeeStatus(ctx, id, StatusInactive)
}

// GetAssignment fetches an assignment by ID.
func (s *Service) GetAssignment(ctx context.Context, id int64) (Assignment, error) {
	return s.repo.GetAssignment(ctx, id)
}

// Assignments returns all assignments of an employee.
func (s *Service) Assignments(ctx context.Context, employeeID int64) ([]Assignment, error) {
	return s.repo.ListAssignmentsByEmployee(ctx, employeeID)
}

// ActiveAssignments returns the open assignments of a user's employee record.
func (s *Service) ActiveAssignments(ctx context.Context, userID int64) ([]Assignment, error) {
	return s.repo.ActiveAssignmentsByUser(ctx, userID)
}

// HomeUnits returns the set of org units a user is actively assigned to. Users
// without an employee record or with only ended assignments get an empty set.
func (s *Service) HomeUnits(ctx context.Context, userID int64) (org.UnitSet, error) {
	assignments, err := s.repo.ActiveAssignmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	units := make(org.UnitSet, len(assignments))
	for _, a := range assignments {
		units[a.OrgUnitID] = struct{}{}
	}
	return units, nil
}

var validAssignmentTypes = map[string]struct{}{
	AssignmentAdmin:      {},
	AssignmentAcademic:   {},
	AssignmentSupport:    {},
	AssignmentManagement: {},
}

// CreateAssignment validates and inserts an assignment.
func (s *Service) CreateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	a.AssignmentType = strings.ToLower(strings.TrimSpace(a.AssignmentType))
	if _, ok := validAssignmentTypes[a.AssignmentType]; !ok {
		return Assignment{}, fmt.Errorf("%w: unknown assignment type %q", ErrInvalidInput, a.AssignmentType)
	}
	if a.Allocation <= 0 || a.Allocation > 1 {
		return Assignment{}, fmt.Errorf("%w: allocation must be in (0, 1]", ErrInvalidInput)
	}
	if a.EmployeeID == 0 || a.OrgUnitID == 0 || a.PositionID == 0 {
		return Assignment{}, fmt.Errorf("%w: employee, org unit and position required", ErrInvalidInput)
	}
	if a.StartDate.IsZero() {
		a.StartDate = s.now()
	}
	if a.EndDate != nil && !a.EndDate.After(a.StartDate) {
		return Assignment{}, fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}
	if _, err := s.repo.GetEmployee(ctx, a.EmployeeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Assignment{}, fmt.Errorf("%w: employee does not exist", ErrInvalidInput)
		}
		return Assignment{}, err
	}
	return s.repo.CreateAssignment(ctx, a)
}

// EndAssignment closes an assignment as of now.
func (s *Service) EndAssignment(ctx context.Context, id int64) error {
	return s.repo.EndAssignment(ctx, id, s.now())
}

// SweepOrphanedAssignments ends open assignments of inactive employees and
// reports how many were closed. Run periodically from the worker.
func (s *Service) SweepOrphanedAssignments(ctx context.Context) (int64, error) {
	return s.repo.CloseOrphanedAssignments(ctx, s.now())
}

// Positions returns the position catalog.
func (s *Service) Positions(ctx context.Context) ([]JobPosition, error) {
	return s.repo.ListPositions(ctx)
}

// EnsurePosition upserts a catalog position.
func (s *Service) EnsurePosition(ctx context.Context, code, title string) (JobPosition, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	title = strings.TrimSpace(title)
	if code == "" || title == "" {
		return JobPosition{}, fmt.Errorf("%w: position code and title required", ErrInvalidInput)
	}
	return s.repo.EnsurePosition(ctx, code, title)
}

// Qualifications returns an employee's qualifications.
func (s *Service) Qualifications(ctx context.Context, employeeID int64) ([]Qualification, error) {
	return s.repo.ListQualifications(ctx, employeeID)
}

// GetQualification fetches a qualification by ID.
func (s *Service) GetQualification(ctx context.Context, id int64) (Qualification, error) {
	return s.repo.GetQualification(ctx, id)
}

// AddQualification validates and inserts a qualification.
func (s *Service) AddQualification(ctx context.Context, q Qualification) (Qualification, error) {
	q.Title = strings.TrimSpace(q.Title)
	q.Kind = strings.ToLower(strings.TrimSpace(q.Kind))
	if q.EmployeeID == 0 || q.Title == "" {
		return Qualification{}, fmt.Errorf("%w: employee and title required", ErrInvalidInput)
	}
	return s.repo.CreateQualification(ctx, q)
}

// RemoveQualification deletes a qualification.
func (s *Service) RemoveQualification(ctx context.Context, id int64) error {
	return s.repo.DeleteQualification(ctx, id)
}

// Trainings returns an employee's trainings.
func (s *Service) Trainings(ctx context.Context, employeeID int64) ([]Training, error) {
	return s.repo.ListTrainings(ctx, employeeID)
}

// GetTraining fetches a training record by ID.
func (s *Service) GetTraining(ctx context.Context, id int64) (Training, error) {
	return s.repo.GetTraining(ctx, id)
}

// AddTraining validates and inserts a training record.
func (s *Service) AddTraining(ctx context.Context, tr Training) (Training, error) {
	tr.Title = strings.TrimSpace(tr.Title)
	if tr.EmployeeID == 0 || tr.Title == "" {
		return Training{}, fmt.Errorf("%w: employee and title required", ErrInvalidInput)
	}
	if tr.Hours < 0 {
		return Training{}, fmt.Errorf("%w: hours cannot be negative", ErrInvalidInput)
	}
	return s.repo.CreateTraining(ctx, tr)
}

// RemoveTraining deletes a training record.
func (s *Service) RemoveTraining(ctx context.Context, id int64) error {
	return s.repo.DeleteTraining(ctx, id)
}
