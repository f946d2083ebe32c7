package academics

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks writes rejected by business rules.
var ErrInvalidInput = errors.New("academics: invalid input")

var validLevels = map[string]struct{}{
	LevelBachelor: {},
	LevelMaster:   {},
	LevelDoctoral: {},
}

// Service handles academic catalog business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListPrograms returns programs, optionally restricted to owning units.
func (s *Service) ListPrograms(ctx context.Context, unitIDs []int64) ([]Program, error) {
	return s.repo.ListPrograms(ctx, unitIDs)
}

// GetProgram fetches a program by ID.
func (s *Service) GetProgram(ctx context.Context, id int64) (Program, error) {
	return s.repo.GetProgram(ctx, id)
}

// CreateProgram validates and inserts a program.
func (s *Service) CreateProgram(ctx context.Context, p Program) (Program, error) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	p.Level = strings.ToLower(strings.TrimSpace(p.Level))
	if p.OrgUnitID == 0 || p.Code == "" || p.Name == "" {
		return Program{}, fmt.Errorf("%w: org unit, code and name required", ErrInvalidInput)
	}
	if _, ok := validLevels[p.Level]; !ok {
		return Program{}, fmt.Errorf("%w: unknown level %q", ErrInvalidInput, p.Level)
	}
	if p.Credits <= 0 {
		return Program{}, fmt.Errorf("%w: credits must be positive", ErrInvalidInput)
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	return s.repo.CreateProgram(ctx, p)
}

// UpdateProgram validates and applies program changes.
func (s *Service) UpdateProgram(ctx context.Context, p Program) (Program, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Level = strings.ToLower(strings.TrimSpace(p.Level))
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	if p.Name == "" {
		return Program{}, fmt.Errorf("%w: program name required", ErrInvalidInput)
	}
	if _, ok := validLevels[p.Level]; !ok {
		return Program{}, fmt.Errorf("%w: unknown level %q", ErrInvalidInput, p.Level)
	}
	if p.Status != StatusDraft && p.Status != StatusActive && p.Status != StatusArchived {
		return Program{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, p.Status)
	}
	if p.Credits <= 0 {
		return Program{}, fmt.Errorf("%w: credits must be positive", ErrInvalidInput)
	}
	return s.repo.UpdateProgram(ctx, p)
}

// ArchiveProgram soft-deletes a program.
func (s *Service) ArchiveProgram(ctx context.Context, id int64) error {
	return s.repo.ArchiveProgram(ctx, id)
}

// ListCourses returns the courses of a program.
func (s *Service) ListCourses(ctx context.Context, programID int64) ([]Course, error) {
	return s.repo.ListCourses(ctx, programID)
}

// GetCourse fetches a course by ID.
func (s *Service) GetCourse(ctx context.Context, id int64) (Course, error) {
	return s.repo.GetCourse(ctx, id)
}

// CreateCourse validates and inserts a course under an existing program.
func (s *Service) CreateCourse(ctx context.Context, c Course) (Course, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	if c.Code == "" || c.Name == "" {
		return Course{}, fmt.Errorf("%w: course code and name required", ErrInvalidInput)
	}
	if c.Credits <= 0 || c.Semester <= 0 {
		return Course{}, fmt.Errorf("%w: credits and semester must be positive", ErrInvalidInput)
	}
	if _, err := s.repo.GetProgram(ctx, c.ProgramID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Course{}, fmt.Errorf("%w: program does not exist", ErrInvalidInput)
		}
		return Course{}, err
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}
	return s.repo.CreateCourse(ctx, c)
}

// UpdateCourse validates and applies course changes.
func (s *Service) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Status = strings.ToLower(strings.TrimSpace(c.Status))
	if c.Name == "" {
		return Course{}, fmt.Errorf("%w: course name required", ErrInvalidInput)
	}
	if c.Credits <= 0 || c.Semester <= 0 {
		return Course{}, fmt.Errorf("%w: credits and semester must be positive", ErrInvalidInput)
	}
	if c.Status != StatusDraft && c.Status != StatusActive && c.Status != StatusArchived {
		return Course{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, c.Status)
	}
	return s.repo.UpdateCourse(ctx, c)
}

// ArchiveCourse soft-deletes a course.
func (s *Service) ArchiveCourse(ctx context.Context, id int64) error {
	return s.repo.ArchiveCourse(ctx, id)
}
