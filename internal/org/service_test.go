package org

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryOrgRepo struct {
	units  map[int64]Unit
	nextID int64
}

func newMemoryOrgRepo(units ...Unit) *memoryOrgRepo {
	repo := &memoryOrgRepo{units: make(map[int64]Unit)}
	for _, unit := range units {
		if unit.Status == "" {
			unit.Status = StatusActive
		}
		repo.units[unit.ID] = unit
		if unit.ID > repo.nextID {
			repo.nextID = unit.ID
		}
	}
	return repo
}

func (r *memoryOrgRepo) ListActiveUnits(ctx context.Context) ([]Unit, error) {
	var units []Unit
	for _, unit := range r.units {
		if unit.Status == StatusActive {
			units = append(units, unit)
		}
	}
	return units, nil
}

func (r *memoryOrgRepo) ListByParent(ctx context.Context, parentID int64) ([]Unit, error) {
	var units []Unit
	for _, unit := range r.units {
		if unit.Status == StatusActive && unit.ParentID != nil && *unit.ParentID == parentID {
			units = append(units, unit)
		}
	}
	return units, nil
}

func (r *memoryOrgRepo) GetUnit(ctx context.Context, id int64) (Unit, error) {
	unit, ok := r.units[id]
	if !ok {
		return Unit{}, ErrNotFound
	}
	return unit, nil
}

func (r *memoryOrgRepo) CreateUnit(ctx context.Context, unit Unit) (Unit, error) {
	for _, existing := range r.units {
		if existing.Code == unit.Code {
			return Unit{}, ErrDuplicate
		}
	}
	r.nextID++
	unit.ID = r.nextID
	r.units[unit.ID] = unit
	return unit, nil
}

func (r *memoryOrgRepo) UpdateUnit(ctx context.Context, unit Unit) (Unit, error) {
	existing, ok := r.units[unit.ID]
	if !ok {
		return Unit{}, ErrNotFound
	}
	existing.ParentID = unit.ParentID
	existing.Type = unit.Type
	existing.Name = unit.Name
	r.units[unit.ID] = existing
	return existing, nil
}

func (r *memoryOrgRepo) ArchiveUnit(ctx context.Context, id int64) error {
	unit, ok := r.units[id]
	if !ok {
		return ErrNotFound
	}
	unit.Status = StatusArchived
	r.units[id] = unit
	return nil
}

func TestServiceDescendants(t *testing.T) {
	svc := NewService(newMemoryOrgRepo(fixtureUnits()...))
	set, err := svc.DescendantsOf(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, set, 3)
	require.True(t, set.Contains(11))
}

func TestServiceCreateRejectsMissingParent(t *testing.T) {
	svc := NewService(newMemoryOrgRepo(fixtureUnits()...))
	_, err := svc.CreateUnit(context.Background(), Unit{ParentID: ptr(999), Type: "department", Code: "X", Name: "X Department"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceUpdateRejectsReparentIntoSubtree(t *testing.T) {
	svc := NewService(newMemoryOrgRepo(fixtureUnits()...))
	// Moving the ICT faculty under one of its own departments would create a cycle.
	_, err := svc.UpdateUnit(context.Background(), Unit{ID: 10, ParentID: ptr(11), Type: "faculty", Name: "Faculty of ICT"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateUnit(context.Background(), Unit{ID: 10, ParentID: ptr(10), Type: "faculty", Name: "Faculty of ICT"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceArchiveHidesFromSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryOrgRepo(fixtureUnits()...))
	require.NoError(t, svc.ArchiveUnit(ctx, 20))

	units, err := svc.ListUnits(ctx)
	require.NoError(t, err)
	for _, unit := range units {
		require.NotEqual(t, int64(20), unit.ID)
	}
}

func TestServiceCreateNormalisesFields(t *testing.T) {
	svc := NewService(newMemoryOrgRepo(fixtureUnits()...))
	unit, err := svc.CreateUnit(context.Background(), Unit{ParentID: ptr(1), Type: " Faculty ", Code: " law ", Name: " Faculty of Law "})
	require.NoError(t, err)
	require.Equal(t, "LAW", unit.Code)
	require.Equal(t, "faculty", unit.Type)
	require.Equal(t, "Faculty of Law", unit.Name)
	require.Equal(t, StatusActive, unit.Status)
}
