package academics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryAcademicsRepo struct {
	programs map[int64]Program
	courses  map[int64]Course
	nextID   int64
}

func newMemoryAcademicsRepo() *memoryAcademicsRepo {
	return &memoryAcademicsRepo{programs: make(map[int64]Program), courses: make(map[int64]Course)}
}

func (r *memoryAcademicsRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryAcademicsRepo) ListPrograms(ctx context.Context, unitIDs []int64) ([]Program, error) {
	var out []Program
	for _, p := range r.programs {
		if p.Status == StatusArchived {
			continue
		}
		if unitIDs != nil {
			match := false
			for _, id := range unitIDs {
				if p.OrgUnitID == id {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryAcademicsRepo) GetProgram(ctx context.Context, id int64) (Program, error) {
	p, ok := r.programs[id]
	if !ok {
		return Program{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryAcademicsRepo) CreateProgram(ctx context.Context, p Program) (Program, error) {
	for _, existing := range r.programs {
		if existing.Code == p.Code {
			return Program{}, ErrDuplicate
		}
	}
	p.ID = r.id()
	r.programs[p.ID] = p
	return p, nil
}

func (r *memoryAcademicsRepo) UpdateProgram(ctx context.Context, p Program) (Program, error) {
	existing, ok := r.programs[p.ID]
	if !ok {
		return Program{}, ErrNotFound
	}
	existing.Name, existing.Level, existing.Credits, existing.Status = p.Name, p.Level, p.Credits, p.Status
	r.programs[p.ID] = existing
	return existing, nil
}

func (r *memoryAcademicsRepo) ArchiveProgram(ctx context.Context, id int64) error {
	p, ok := r.programs[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = StatusArchived
	r.programs[id] = p
	return nil
}

func (r *memoryAcademicsRepo) ListCourses(ctx context.Context, programID int64) ([]Course, error) {
	var out []Course
	for _, c := range r.courses {
		if c.ProgramID == programID && c.Status != StatusArchived {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryAcademicsRepo) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryAcademicsRepo) CreateCourse(ctx context.Context, c Course) (Course, error) {
	c.ID = r.id()
	r.courses[c.ID] = c
	return c, nil
}

func (r *memoryAcademicsRepo) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	existing, ok := r.courses[c.ID]
	if !ok {
		return Course{}, ErrNotFound
	}
	existing.Name, existing.Credits, existing.Semester, existing.Status = c.Name, c.Credits, c.Semester, c.Status
	r.courses[c.ID] = existing
	return existing, nil
}

func (r *memoryAcademicsRepo) ArchiveCourse(ctx context.Context, id int64) error {
	c, ok := r.courses[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = StatusArchived
	r.courses[id] = c
	return nil
}

var _ RepositoryPort = (*memoryAcademicsRepo)(nil)

func TestCreateProgramValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryAcademicsRepo())

	_, err := svc.CreateProgram(ctx, Program{OrgUnitID: 11, Code: "SE-BSC", Name: "Software Engineering", Level: "certificate", Credits: 240})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateProgram(ctx, Program{OrgUnitID: 11, Code: "SE-BSC", Name: "Software Engineering", Level: LevelBachelor, Credits: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	program, err := svc.CreateProgram(ctx, Program{OrgUnitID: 11, Code: " se-bsc ", Name: " Software Engineering ", Level: " Bachelor ", Credits: 240})
	require.NoError(t, err)
	require.Equal(t, "SE-BSC", program.Code)
	require.Equal(t, LevelBachelor, program.Level)
	require.Equal(t, StatusDraft, program.Status)
}

func TestCreateCourseRequiresProgram(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAcademicsRepo()
	svc := NewService(repo)

	_, err := svc.CreateCourse(ctx, Course{ProgramID: 999, Code: "SE101", Name: "Intro", Credits: 6, Semester: 1})
	require.ErrorIs(t, err, ErrInvalidInput)

	program, err := svc.CreateProgram(ctx, Program{OrgUnitID: 11, Code: "SE-BSC", Name: "Software Engineering", Level: LevelBachelor, Credits: 240})
	require.NoError(t, err)

	course, err := svc.CreateCourse(ctx, Course{ProgramID: program.ID, Code: "se101", Name: "Intro to Programming", Credits: 6, Semester: 1})
	require.NoError(t, err)
	require.Equal(t, "SE101", course.Code)
	require.Equal(t, StatusDraft, course.Status)
}

func TestArchiveProgramHidesFromListing(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAcademicsRepo()
	svc := NewService(repo)

	program, err := svc.CreateProgram(ctx, Program{OrgUnitID: 11, Code: "SE-BSC", Name: "Software Engineering", Level: LevelBachelor, Credits: 240})
	require.NoError(t, err)
	require.NoError(t, svc.ArchiveProgram(ctx, program.ID))

	programs, err := svc.ListPrograms(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, programs)
}

func TestListProgramsUnitRestriction(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAcademicsRepo()
	svc := NewService(repo)

	_, err := svc.CreateProgram(ctx, Program{OrgUnitID: 11, Code: "SE-BSC", Name: "Software Engineering", Level: LevelBachelor, Credits: 240})
	require.NoError(t, err)
	_, err = svc.CreateProgram(ctx, Program{OrgUnitID: 20, Code: "MED-MD", Name: "Medicine", Level: LevelMaster, Credits: 360})
	require.NoError(t, err)

	scoped, err := svc.ListPrograms(ctx, []int64{11})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "SE-BSC", scoped[0].Code)

	none, err := svc.ListPrograms(ctx, []int64{})
	require.NoError(t, err)
	require.Empty(t, none, "an empty restriction matches nothing")
}
