package academics

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("academics: not found")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("academics: duplicate")
)

// RepositoryPort defines data access methods for the academic catalog.
type RepositoryPort interface {
	ListPrograms(ctx context.Context, unitIDs []int64) ([]Program, error)
	GetProgram(ctx context.Context, id int64) (Program, error)
	CreateProgram(ctx context.Context, p Program) (Program, error)
	UpdateProgram(ctx context.Context, p Program) (Program, error)
	ArchiveProgram(ctx context.Context, id int64) error

	ListCourses(ctx context.Context, programID int64) ([]Course, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	CreateCourse(ctx context.Context, c Course) (Course, error)
	UpdateCourse(ctx context.Context, c Course) (Course, error)
	ArchiveCourse(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const programColumns = `id, org_unit_id, code, name, level, credits, status, created_at, updated_at`

// ListPrograms returns non-archived programs, optionally restricted to a set
// of owning units. A nil slice means no restriction; an empty slice matches
// nothing.
func (r *Repository) ListPrograms(ctx context.Context, unitIDs []int64) ([]Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE status <> 'archived'`
	args := []any{}
	if unitIDs != nil {
		query += ` AND org_unit_id = ANY($1)`
		args = append(args, unitIDs)
	}
	query += ` ORDER BY code`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var programs []Program
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.OrgUnitID, &p.Code, &p.Name, &p.Level, &p.Credits, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// GetProgram fetches a program by ID.
func (r *Repository) GetProgram(ctx context.Context, id int64) (Program, error) {
	var p Program
	err := r.pool.QueryRow(ctx, `SELECT `+programColumns+` FROM programs WHERE id = $1`, id).
		Scan(&p.ID, &p.OrgUnitID, &p.Code, &p.Name, &p.Level, &p.Credits, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Program{}, ErrNotFound
		}
		return Program{}, err
	}
	return p, nil
}

// CreateProgram inserts a new program.
func (r *Repository) CreateProgram(ctx context.Context, p Program) (Program, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO programs (org_unit_id, code, name, level, credits, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		p.OrgUnitID, p.Code, p.Name, p.Level, p.Credits, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Program{}, mapDuplicate(err)
	}
	return p, nil
}

// UpdateProgram updates a program's mutable fields.
func (r *Repository) UpdateProgram(ctx context.Context, p Program) (Program, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE programs SET name = $2, level = $3, credits = $4, status = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING org_unit_id, code, created_at, updated_at`,
		p.ID, p.Name, p.Level, p.Credits, p.Status).
		Scan(&p.OrgUnitID, &p.Code, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Program{}, ErrNotFound
		}
		return Program{}, err
	}
	return p, nil
}

// ArchiveProgram soft-deletes a program.
func (r *Repository) ArchiveProgram(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE programs SET status = 'archived', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const courseColumns = `id, program_id, code, name, credits, semester, status, created_at, updated_at`

// ListCourses returns the non-archived courses of a program ordered by
// semester, then code.
func (r *Repository) ListCourses(ctx context.Context, programID int64) ([]Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE program_id = $1 AND status <> 'archived' ORDER BY semester, code`,
		programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.ProgramID, &c.Code, &c.Name, &c.Credits, &c.Semester, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse fetches a course by ID.
func (r *Repository) GetCourse(ctx context.Context, id int64) (Course, error) {
	var c Course
	err := r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.ProgramID, &c.Code, &c.Name, &c.Credits, &c.Semester, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Course{}, ErrNotFound
		}
		return Course{}, err
	}
	return c, nil
}

// CreateCourse inserts a new course.
func (r *Repository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO courses (program_id, code, name, credits, semester, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		c.ProgramID, c.Code, c.Name, c.Credits, c.Semester, c.Status).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Course{}, mapDuplicate(err)
	}
	return c, nil
}

// UpdateCourse updates a course's mutable fields.
func (r *Repository) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE courses SET name = $2, credits = $3, semester = $4, status = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING program_id, code, created_at, updated_at`,
		c.ID, c.Name, c.Credits, c.Semester, c.Status).
		Scan(&c.ProgramID, &c.Code, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Course{}, ErrNotFound
		}
		return Course{}, err
	}
	return c, nil
}

// ArchiveCourse soft-deletes a course.
func (r *Repository) ArchiveCourse(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE courses SET status = 'archived', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
