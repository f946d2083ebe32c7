package org

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks structural edits rejected by business rules.
var ErrInvalidInput = errors.New("org: invalid input")

// Service handles org structure business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Snapshot loads the active unit tree into a fresh hierarchy index. The
// index lives for the duration of one request; structural edits are visible
// on the next snapshot.
func (s *Service) Snapshot(ctx context.Context) (*Hierarchy, error) {
	units, err := s.repo.ListActiveUnits(ctx)
	if err != nil {
		return nil, err
	}
	return NewHierarchy(units), nil
}

// GetUnit fetches a single unit.
func (s *Service) GetUnit(ctx context.Context, id int64) (Unit, error) {
	return s.repo.GetUnit(ctx, id)
}

// ListUnits returns all active units.
func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	return s.repo.ListActiveUnits(ctx)
}

// ChildrenOf returns the direct children of a unit.
func (s *Service) ChildrenOf(ctx context.Context, id int64) ([]Unit, error) {
	return s.repo.ListByParent(ctx, id)
}

// DescendantsOf returns the subtree rooted at the unit, itself included.
// Unknown ids yield an empty set, not an error.
func (s *Service) DescendantsOf(ctx context.Context, id int64) (UnitSet, error) {
	hierarchy, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.DescendantsOf(id), nil
}

// Tree returns the nested unit tree for display.
func (s *Service) Tree(ctx context.Context) ([]*TreeNode, error) {
	hierarchy, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.Tree(), nil
}

// CreateUnit validates and inserts a new unit.
func (s *Service) CreateUnit(ctx context.Context, unit Unit) (Unit, error) {
	unit.Code = strings.ToUpper(strings.TrimSpace(unit.Code))
	unit.Name = strings.TrimSpace(unit.Name)
	unit.Type = strings.ToLower(strings.TrimSpace(unit.Type))
	if unit.Code == "" || unit.Name == "" {
		return Unit{}, fmt.Errorf("%w: unit code and name required", ErrInvalidInput)
	}
	if unit.Status == "" {
		unit.Status = StatusActive
	}
	if unit.ParentID != nil {
		if _, err := s.repo.GetUnit(ctx, *unit.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Unit{}, fmt.Errorf("%w: parent unit does not exist", ErrInvalidInput)
			}
			return Unit{}, err
		}
	}
	return s.repo.CreateUnit(ctx, unit)
}

// UpdateUnit applies a structural change. Re-parenting a unit under its own
// subtree would introduce a cycle, so the new parent is checked against the
// current descendant set first.
func (s *Service) UpdateUnit(ctx context.Context, unit Unit) (Unit, error) {
	unit.Name = strings.TrimSpace(unit.Name)
	unit.Type = strings.ToLower(strings.TrimSpace(unit.Type))
	if unit.Name == "" {
		return Unit{}, fmt.Errorf("%w: unit name required", ErrInvalidInput)
	}
	if unit.ParentID != nil {
		if *unit.ParentID == unit.ID {
			return Unit{}, fmt.Errorf("%w: unit cannot be its own parent", ErrInvalidInput)
		}
		descendants, err := s.DescendantsOf(ctx, unit.ID)
		if err != nil {
			return Unit{}, err
		}
		if descendants.Contains(*unit.ParentID) {
			return Unit{}, fmt.Errorf("%w: new parent is inside the unit's subtree", ErrInvalidInput)
		}
		if _, err := s.repo.GetUnit(ctx, *unit.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Unit{}, fmt.Errorf("%w: parent unit does not exist", ErrInvalidInput)
			}
			return Unit{}, err
		}
	}
	return s.repo.UpdateUnit(ctx, unit)
}

// ArchiveUnit soft-deletes a unit.
func (s *Service) ArchiveUnit(ctx context.Context, id int64) error {
	return s.repo.ArchiveUnit(ctx, id)
}
