package hr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univera/univera/internal/platform/db"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("hr: not found")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("hr: duplicate")
)

// RepositoryPort defines data access methods for HR records.
type RepositoryPort interface {
	ListEmployees(ctx context.Context, filters ListFilters) ([]Employee, int, error)
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	GetEmployeeByUserID(ctx context.Context, userID int64) (Employee, error)
	CreateEmployee(ctx context.Context, emp Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, emp Employee) (Employee, error)
	SetEmployeeStatus(ctx context.Context, id int64, status string) error

	GetAssignment(ctx context.Context, id int64) (Assignment, error)
	ListAssignmentsByEmployee(ctx context.Context, employeeID int64) ([]Assignment, error)
	ActiveAssignmentsByUser(ctx context.Context, userID int64) ([]Assignment, error)
	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	EndAssignment(ctx context.Context, id int64, endDate time.Time) error
	CloseOrphanedAssignments(ctx context.Context, endDate time.Time) (int64, error)

	ListPositions(ctx context.Context) ([]JobPosition, error)
	EnsurePosition(ctx context.Context, code, title string) (JobPosition, error)

	ListQualifications(ctx context.Context, employeeID int64) ([]Qualification, error)
	GetQualification(ctx context.Context, id int64) (Qualification, error)
	CreateQualification(ctx context.Context, q Qualification) (Qualification, error)
	DeleteQualification(ctx context.Context, id int64) error

	ListTrainings(ctx context.Context, employeeID int64) ([]Training, error)
	GetTraining(ctx context.Context, id int64) (Training, error)
	CreateTraining(ctx context.Context, tr Training) (Training, error)
	DeleteTraining(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `e.id, e.user_id, e.employee_no, e.full_name, e.employment_type, e.status, e.hired_at, e.created_at, e.updated_at`

// ListEmployees returns a page of employees matching the filters. The scope
// restriction is part of the WHERE clause so it composes with search terms
// and paging counts instead of being filtered after the fact.
func (r *Repository) ListEmployees(ctx context.Context, filters ListFilters) ([]Employee, int, error) {
	where := `WHERE e.status = 'active'`
	args := []any{}
	idx := 1

	if filters.Search != "" {
		where += fmt.Sprintf(` AND (e.full_name ILIKE $%d OR e.employee_no ILIKE $%d)`, idx, idx)
		args = append(args, "%"+filters.Search+"%")
		idx++
	}

	switch {
	case filters.Scope.All:
		// no restriction
	case len(filters.Scope.UnitIDs) > 0:
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM org_assignments a
			WHERE a.employee_id = e.id AND a.end_date IS NULL AND a.org_unit_id = ANY($%d))`, idx)
		args = append(args, filters.Scope.UnitIDs)
		idx++
	default:
		where += fmt.Sprintf(` AND e.user_id = $%d`, idx)
		args = append(args, filters.Scope.SelfUserID)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees e `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM employees e %s ORDER BY e.full_name LIMIT $%d OFFSET $%d`,
		employeeColumns, where, idx, idx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, emp)
	}
	return employees, total, rows.Err()
}

// GetEmployee fetches an employee by ID.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.id = $1`, id)
	emp, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return emp, nil
}

// GetEmployeeByUserID fetches the employee record backing a user account.
func (r *Repository) GetEmployeeByUserID(ctx context.Context, userID int64) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.user_id = $1`, userID)
	emp, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return emp, nil
}

// CreateEmployee inserts a new employee record.
func (r *Repository) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employees (user_id, employee_no, full_name, employment_type, status, hired_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		emp.UserID, emp.EmployeeNo, emp.FullName, emp.EmploymentType, emp.Status, emp.HiredAt).
		Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return Employee{}, mapConstraint(err)
	}
	return emp, nil
}

// UpdateEmployee updates the mutable fields of an employee.
func (r *Repository) UpdateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE employees SET full_name = $2, employment_type = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING user_id, employee_no, status, hired_at, created_at, updated_at`,
		emp.ID, emp.FullName, emp.EmploymentType).
		Scan(&emp.UserID, &emp.EmployeeNo, &emp.Status, &emp.HiredAt, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return emp, nil
}

// SetEmployeeStatus flips an employee's status (active/inactive).
func (r *Repository) SetEmployeeStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const assignmentColumns = `a.id, a.employee_id, a.org_unit_id, a.position_id, a.is_primary, a.assignment_type, a.allocation, a.start_date, a.end_date`

// GetAssignment fetches an assignment by ID.
func (r *Repository) GetAssignment(ctx context.Context, id int64) (Assignment, error) {
	var a Assignment
	err := r.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM org_assignments a WHERE a.id = $1`, id).
		Scan(&a.ID, &a.EmployeeID, &a.OrgUnitID, &a.PositionID, &a.IsPrimary, &a.AssignmentType, &a.Allocation, &a.StartDate, &a.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

// ListAssignmentsByEmployee returns all assignments of an employee, newest
// first, ended ones included.
func (r *Repository) ListAssignmentsByEmployee(ctx context.Context, employeeID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM org_assignments a WHERE a.employee_id = $1 ORDER BY a.start_date DESC`,
		employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ActiveAssignmentsByUser returns the open assignments of the employee backing
// a user account. Active means the end date has not been set; a user with no
// employee record yields no rows, not an error.
func (r *Repository) ActiveAssignmentsByUser(ctx context.Context, userID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+`
		 FROM org_assignments a
		 JOIN employees e ON e.id = a.employee_id
		 WHERE e.user_id = $1 AND a.end_date IS NULL`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// CreateAssignment inserts an assignment. An employee has at most one primary
// assignment, so inserting a primary demotes the previous one in the same
// transaction.
func (r *Repository) CreateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if a.IsPrimary {
			if _, err := tx.Exec(ctx,
				`UPDATE org_assignments SET is_primary = FALSE
				 WHERE employee_id = $1 AND is_primary AND end_date IS NULL`,
				a.EmployeeID); err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx,
			`INSERT INTO org_assignments (employee_id, org_unit_id, position_id, is_primary, assignment_type, allocation, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			a.EmployeeID, a.OrgUnitID, a.PositionID, a.IsPrimary, a.AssignmentType, a.Allocation, a.StartDate, a.EndDate).
			Scan(&a.ID)
	})
	if err != nil {
		return Assignment{}, mapConstraint(err)
	}
	return a, nil
}

// EndAssignment closes an assignment by setting its end date. Ending an
// already ended assignment is a no-op for the scoping index but still updates
// the stored date.
func (r *Repository) EndAssignment(ctx context.Context, id int64, endDate time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE org_assignments SET end_date = $2 WHERE id = $1`, id, endDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseOrphanedAssignments ends open assignments belonging to inactive
// employees. Employees deactivated outside the service path (imports, manual
// fixes) can otherwise keep contributing units to the scoping index.
func (r *Repository) CloseOrphanedAssignments(ctx context.Context, endDate time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE org_assignments a SET end_date = $1
		 FROM employees e
		 WHERE e.id = a.employee_id AND e.status = 'inactive' AND a.end_date IS NULL`,
		endDate)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListPositions returns the position catalog ordered by code.
func (r *Repository) ListPositions(ctx context.Context) ([]JobPosition, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, title FROM job_positions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var positions []JobPosition
	for rows.Next() {
		var pos JobPosition
		if err := rows.Scan(&pos.ID, &pos.Code, &pos.Title); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// EnsurePosition upserts a position by code.
func (r *Repository) EnsurePosition(ctx context.Context, code, title string) (JobPosition, error) {
	var pos JobPosition
	err := r.pool.QueryRow(ctx,
		`INSERT INTO job_positions (code, title) VALUES ($1, $2)
		 ON CONFLICT (code) DO UPDATE SET title = EXCLUDED.title
		 RETURNING id, code, title`,
		code, title).
		Scan(&pos.ID, &pos.Code, &pos.Title)
	if err != nil {
		return JobPosition{}, err
	}
	return pos, nil
}

// ListQualifications returns an employee's qualifications, newest first.
func (r *Repository) ListQualifications(ctx context.Context, employeeID int64) ([]Qualification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, employee_id, kind, title, institution, awarded_at
		 FROM qualifications WHERE employee_id = $1 ORDER BY awarded_at DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quals []Qualification
	for rows.Next() {
		var q Qualification
		if err := rows.Scan(&q.ID, &q.EmployeeID, &q.Kind, &q.Title, &q.Institution, &q.AwardedAt); err != nil {
			return nil, err
		}
		quals = append(quals, q)
	}
	return quals, rows.Err()
}

// GetQualification fetches a qualification by ID.
func (r *Repository) GetQualification(ctx context.Context, id int64) (Qualification, error) {
	var q Qualification
	err := r.pool.QueryRow(ctx,
		`SELECT id, employee_id, kind, title, institution, awarded_at
		 FROM qualifications WHERE id = $1`, id).
		Scan(&q.ID, &q.EmployeeID, &q.Kind, &q.Title, &q.Institution, &q.AwardedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Qualification{}, ErrNotFound
		}
		return Qualification{}, err
	}
	return q, nil
}

// CreateQualification inserts a qualification.
func (r *Repository) CreateQualification(ctx context.Context, q Qualification) (Qualification, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO qualifications (employee_id, kind, title, institution, awarded_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		q.EmployeeID, q.Kind, q.Title, q.Institution, q.AwardedAt).
		Scan(&q.ID)
	if err != nil {
		return Qualification{}, err
	}
	return q, nil
}

// DeleteQualification removes a qualification.
func (r *Repository) DeleteQualification(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM qualifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTrainings returns an employee's trainings, newest first.
func (r *Repository) ListTrainings(ctx context.Context, employeeID int64) ([]Training, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, employee_id, title, provider, hours, completed_at
		 FROM trainings WHERE employee_id = $1 ORDER BY completed_at DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var trainings []Training
	for rows.Next() {
		var tr Training
		if err := rows.Scan(&tr.ID, &tr.EmployeeID, &tr.Title, &tr.Provider, &tr.Hours, &tr.CompletedAt); err != nil {
			return nil, err
		}
		trainings = append(trainings, tr)
	}
	return trainings, rows.Err()
}

// GetTraining fetches a training record by ID.
func (r *Repository) GetTraining(ctx context.Context, id int64) (Training, error) {
	var tr Training
	err := r.pool.QueryRow(ctx,
		`SELECT id, employee_id, title, provider, hours, completed_at
		 FROM trainings WHERE id = $1`, id).
		Scan(&tr.ID, &tr.EmployeeID, &tr.Title, &tr.Provider, &tr.Hours, &tr.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Training{}, ErrNotFound
		}
		return Training{}, err
	}
	return tr, nil
}

// CreateTraining inserts a training record.
func (r *Repository) CreateTraining(ctx context.Context, tr Training) (Training, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO trainings (employee_id, title, provider, hours, completed_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		tr.EmployeeID, tr.Title, tr.Provider, tr.Hours, tr.CompletedAt).
		Scan(&tr.ID)
	if err != nil {
		return Training{}, err
	}
	return tr, nil
}

// DeleteTraining removes a training record.
func (r *Repository) DeleteTraining(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trainings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.UserID, &emp.EmployeeNo, &emp.FullName, &emp.EmploymentType, &emp.Status, &emp.HiredAt, &emp.CreatedAt, &emp.UpdatedAt)
	return emp, err
}

func collectAssignments(rows pgx.Rows) ([]Assignment, error) {
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.OrgUnitID, &a.PositionID, &a.IsPrimary, &a.AssignmentType, &a.Allocation, &a.StartDate, &a.EndDate); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// mapConstraint translates constraint violations into domain errors: unique
// violations become ErrDuplicate, foreign-key violations (unknown employee,
// unit, or position) become ErrInvalidInput instead of surfacing as 500s.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return ErrDuplicate
	case "23503":
		return fmt.Errorf("%w: referenced record does not exist", ErrInvalidInput)
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
