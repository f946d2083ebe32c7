package rbac

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Service orchestrates RBAC catalog operations and permission resolution.
type Service struct {
	repo  RepositoryPort
	cache *PermissionCache
	group singleflight.Group
}

// NewService constructs a Service. The cache may be nil to disable caching.
func NewService(repo RepositoryPort, cache *PermissionCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListRoles returns all roles ordered by code.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, code, name, description string) (Role, error) {
	code = NormalizeCode(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return Role{}, errors.New("rbac: role code and name required")
	}
	return s.repo.CreateRole(ctx, Role{Code: code, Name: name, Description: strings.TrimSpace(description)})
}

// UpdateRole updates an existing role's name and description.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.UpdateRole(ctx, Role{ID: id, Name: name, Description: strings.TrimSpace(description)})
}

// DeleteRole removes a role and revokes it from every holder.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// EnsurePermission upserts a catalog entry.
func (s *Service) EnsurePermission(ctx context.Context, code, description string) (Permission, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Permission{}, errors.New("rbac: permission code required")
	}
	return s.repo.EnsurePermission(ctx, code, strings.TrimSpace(description))
}

// ListRolePermissions returns the permissions attached to a role.
func (s *Service) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.ListRolePermissions(ctx, roleID)
}

// SetRolePermissions replaces the permission set of a role by diffing the
// current assignments against the requested ids. A removed link takes effect
// for every holder as soon as the cache is invalidated.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	current, err := s.repo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, perm := range current {
		existing[perm.ID] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	s.cache.Invalidate()
	return nil
}

// ListUserRoles returns the roles held by a user.
func (s *Service) ListUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.ListUserRoles(ctx, userID)
}

// AssignRole grants a role to a user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// RemoveRole revokes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// EffectivePermissions resolves the deduplicated permission set a user holds
// across all roles. A missing or unknown user resolves to the empty set;
// distinguishing "unauthenticated" from "no roles" is the caller's job.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) (PermissionSet, error) {
	if set, ok := s.cache.Get(userID); ok {
		return set, nil
	}
	key := strconv.FormatInt(userID, 10)
	result, err, _ := s.group.Do(key, func() (any, error) {
		codes, err := s.repo.UserPermissionCodes(ctx, userID)
		if err != nil {
			return nil, err
		}
		set := NewPermissionSet(codes)
		s.cache.Put(userID, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(PermissionSet), nil
}

// InvalidatePermissions drops all cached permission resolutions. Exposed for
// callers that mutate role data outside this service (seeds, admin tooling).
func (s *Service) InvalidatePermissions() {
	s.cache.Invalidate()
}
