package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRBACRepo struct {
	roles       map[int64]Role
	perms       map[int64]Permission
	rolePerms   map[int64]map[int64]struct{}
	userRoles   map[int64]map[int64]struct{}
	nextID      int64
	resolutions int
}

func newMemoryRBACRepo() *memoryRBACRepo {
	return &memoryRBACRepo{
		roles:     make(map[int64]Role),
		perms:     make(map[int64]Permission),
		rolePerms: make(map[int64]map[int64]struct{}),
		userRoles: make(map[int64]map[int64]struct{}),
	}
}

func (r *memoryRBACRepo) nextSeq() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRBACRepo) ListRoles(ctx context.Context) ([]Role, error) {
	roles := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *memoryRBACRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (r *memoryRBACRepo) CreateRole(ctx context.Context, role Role) (Role, error) {
	for _, existing := range r.roles {
		if existing.Code == role.Code {
			return Role{}, ErrDuplicate
		}
	}
	role.ID = r.nextSeq()
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryRBACRepo) UpdateRole(ctx context.Context, role Role) (Role, error) {
	existing, ok := r.roles[role.ID]
	if !ok {
		return Role{}, ErrNotFound
	}
	existing.Name = role.Name
	existing.Description = role.Description
	r.roles[role.ID] = existing
	return existing, nil
}

func (r *memoryRBACRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return ErrNotFound
	}
	delete(r.roles, id)
	delete(r.rolePerms, id)
	return nil
}

func (r *memoryRBACRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	perms := make([]Permission, 0, len(r.perms))
	for _, perm := range r.perms {
		perms = append(perms, perm)
	}
	return perms, nil
}

func (r *memoryRBACRepo) EnsurePermission(ctx context.Context, code, description string) (Permission, error) {
	for _, perm := range r.perms {
		if perm.Code == code {
			return perm, nil
		}
	}
	perm := Permission{ID: r.nextSeq(), Code: code, Description: description}
	r.perms[perm.ID] = perm
	return perm, nil
}

func (r *memoryRBACRepo) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	var perms []Permission
	for id := range r.rolePerms[roleID] {
		perms = append(perms, r.perms[id])
	}
	return perms, nil
}

func (r *memoryRBACRepo) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	if r.rolePerms[roleID] == nil {
		r.rolePerms[roleID] = make(map[int64]struct{})
	}
	r.rolePerms[roleID][permissionID] = struct{}{}
	return nil
}

func (r *memoryRBACRepo) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	delete(r.rolePerms[roleID], permissionID)
	return nil
}

func (r *memoryRBACRepo) ListUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	var roles []Role
	for id := range r.userRoles[userID] {
		roles = append(roles, r.roles[id])
	}
	return roles, nil
}

func (r *memoryRBACRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	if r.userRoles[userID] == nil {
		r.userRoles[userID] = make(map[int64]struct{})
	}
	r.userRoles[userID][roleID] = struct{}{}
	return nil
}

func (r *memoryRBACRepo) RemoveRole(ctx context.Context, userID, roleID int64) error {
	delete(r.userRoles[userID], roleID)
	return nil
}

func (r *memoryRBACRepo) UserPermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	r.resolutions++
	seen := make(map[string]struct{})
	var codes []string
	for roleID := range r.userRoles[userID] {
		for permID := range r.rolePerms[roleID] {
			code := r.perms[permID].Code
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func seedRole(t *testing.T, svc *Service, code string, permCodes ...string) Role {
	t.Helper()
	ctx := context.Background()
	role, err := svc.CreateRole(ctx, code, code, "")
	require.NoError(t, err)
	var ids []int64
	for _, permCode := range permCodes {
		perm, err := svc.EnsurePermission(ctx, permCode, "")
		require.NoError(t, err)
		ids = append(ids, perm.ID)
	}
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, ids))
	return role
}

func TestEffectivePermissionsEmptyForUnknownUser(t *testing.T) {
	svc := NewService(newMemoryRBACRepo(), nil)
	set, err := svc.EffectivePermissions(context.Background(), 404)
	require.NoError(t, err)
	require.Empty(t, set)
	require.False(t, set.Has("hr.employees.view"))
}

func TestEffectivePermissionsUnionAcrossRoles(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRBACRepo(), nil)

	viewer := seedRole(t, svc, "hr_viewer", "hr.employees.view", "hr.assignments.view")
	editor := seedRole(t, svc, "hr_editor", "hr.employees.view", "hr.employees.update")

	require.NoError(t, svc.AssignRole(ctx, 7, viewer.ID))
	require.NoError(t, svc.AssignRole(ctx, 7, editor.ID))
	// Duplicate grant must be idempotent.
	require.NoError(t, svc.AssignRole(ctx, 7, editor.ID))

	set, err := svc.EffectivePermissions(ctx, 7)
	require.NoError(t, err)
	require.Len(t, set, 3)
	require.True(t, set.HasAll("hr.employees.view", "hr.assignments.view", "hr.employees.update"))
}

func TestPermissionSetTotality(t *testing.T) {
	var empty PermissionSet
	require.False(t, empty.Has(""))
	require.True(t, empty.HasAny())
	require.True(t, empty.HasAll())
	require.False(t, empty.HasAny("", "hr.employees.view"))

	set := NewPermissionSet([]string{" HR.Employees.View ", "hr.employees.view", ""})
	require.Len(t, set, 1)
	require.True(t, set.Has("hr.employees.view"))
	require.True(t, set.Has("HR.EMPLOYEES.VIEW"))
}

func TestEffectivePermissionsCached(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRBACRepo()
	svc := NewService(repo, NewPermissionCache(time.Minute))

	role := seedRole(t, svc, "registrar", "academics.programs.view")
	require.NoError(t, svc.AssignRole(ctx, 1, role.ID))

	_, err := svc.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	_, err = svc.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, repo.resolutions)
}

func TestCatalogMutationInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRBACRepo()
	svc := NewService(repo, NewPermissionCache(time.Minute))

	role := seedRole(t, svc, "dean", "hr.employees.update")
	require.NoError(t, svc.AssignRole(ctx, 10, role.ID))

	set, err := svc.EffectivePermissions(ctx, 10)
	require.NoError(t, err)
	require.True(t, set.Has("hr.employees.update"))

	// Revoking the role-permission link takes effect on the next resolution.
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, nil))
	set, err = svc.EffectivePermissions(ctx, 10)
	require.NoError(t, err)
	require.False(t, set.Has("hr.employees.update"))
}

func TestPermissionCacheTTLExpiry(t *testing.T) {
	cache := NewPermissionCache(time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	cache.Put(5, NewPermissionSet([]string{"org.units.view"}))
	_, ok := cache.Get(5)
	require.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = cache.Get(5)
	require.False(t, ok)
}

func TestPermissionCacheDisabled(t *testing.T) {
	cache := NewPermissionCache(0)
	cache.Put(1, NewPermissionSet([]string{"core.users.view"}))
	_, ok := cache.Get(1)
	require.False(t, ok)

	// Nil cache must be safe everywhere the service touches it.
	var nilCache *PermissionCache
	nilCache.Invalidate()
	nilCache.Put(1, nil)
	_, ok = nilCache.Get(1)
	require.False(t, ok)
}
