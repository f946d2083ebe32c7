package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/univera/univera/internal/org"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
)

type stubPerms struct {
	sets map[int64]rbac.PermissionSet
	err  error
}

func (s *stubPerms) EffectivePermissions(ctx context.Context, userID int64) (rbac.PermissionSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sets[userID], nil
}

type stubHierarchy struct {
	units []org.Unit
	err   error
}

func (s *stubHierarchy) Snapshot(ctx context.Context) (*org.Hierarchy, error) {
	if s.err != nil {
		return nil, s.err
	}
	return org.NewHierarchy(s.units), nil
}

type stubAssignments struct {
	homes map[int64]org.UnitSet
	err   error
}

func (s *stubAssignments) HomeUnits(ctx context.Context, userID int64) (org.UnitSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.homes[userID], nil
}

func ptr(v int64) *int64 { return &v }

func unitSet(ids ...int64) org.UnitSet {
	set := make(org.UnitSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Fixture tree: university 1 with faculty 10 (departments 11, 12) and
// faculty 20.
func fixtureTree() []org.Unit {
	return []org.Unit{
		{ID: 1, Code: "UNIV", Name: "University", Type: "university"},
		{ID: 10, ParentID: ptr(1), Code: "ICT", Name: "Faculty of ICT", Type: "faculty"},
		{ID: 11, ParentID: ptr(10), Code: "SE", Name: "Software Engineering", Type: "department"},
		{ID: 12, ParentID: ptr(10), Code: "CS", Name: "Computer Science", Type: "department"},
		{ID: 20, ParentID: ptr(1), Code: "MED", Name: "Faculty of Medicine", Type: "faculty"},
	}
}

const (
	hrAdmin  int64 = 1
	deanICT  int64 = 2
	lecturer int64 = 3
)

func fixtureResolver(t *testing.T) *Resolver {
	t.Helper()
	perms := &stubPerms{sets: map[int64]rbac.PermissionSet{
		hrAdmin:  rbac.NewPermissionSet([]string{shared.PermEmployeesView, shared.PermEmployeesUpdate, shared.PermEmployeesDelete}),
		deanICT:  rbac.NewPermissionSet([]string{shared.PermEmployeesView, shared.PermEmployeesUpdate}),
		lecturer: rbac.NewPermissionSet([]string{shared.PermEmployeesView}),
	}}
	assignments := &stubAssignments{homes: map[int64]org.UnitSet{
		hrAdmin:  unitSet(1),
		deanICT:  unitSet(10),
		lecturer: unitSet(11),
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(logger, perms, &stubHierarchy{units: fixtureTree()}, assignments, DefaultPolicies())
}

func TestAdminScopeCoversAllUnits(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)

	scope := resolver.ResolveAccessibleUnits(ctx, hrAdmin, "hr.employees")
	require.Equal(t, TierAdmin, scope.Tier)
	require.True(t, scope.All)
	require.True(t, scope.AllowsUnit(20), "admin scope covers units outside own assignment")
	require.True(t, scope.AllowsUnit(999), "admin scope is not limited to known units")
}

func TestManagerScopeIsAssignmentSubtree(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)

	scope := resolver.ResolveAccessibleUnits(ctx, deanICT, "hr.employees")
	require.Equal(t, TierManager, scope.Tier)
	require.False(t, scope.All)
	require.True(t, scope.AllowsUnit(10), "scope includes the assigned unit itself")
	require.True(t, scope.AllowsUnit(11))
	require.True(t, scope.AllowsUnit(12))
	require.False(t, scope.AllowsUnit(20), "sibling faculty is out of scope")
	require.False(t, scope.AllowsUnit(1), "ancestors are out of scope")
}

func TestManagerScopeUnionsMultipleAssignments(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)
	resolver.assignments = &stubAssignments{homes: map[int64]org.UnitSet{
		deanICT: unitSet(11, 20),
	}}

	scope := resolver.ResolveAccessibleUnits(ctx, deanICT, "hr.employees")
	require.Equal(t, TierManager, scope.Tier)
	require.True(t, scope.AllowsUnit(11))
	require.True(t, scope.AllowsUnit(20))
	require.False(t, scope.AllowsUnit(12))
}

func TestSelfScopeWithoutElevatedPermission(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)

	scope := resolver.ResolveAccessibleUnits(ctx, lecturer, "hr.employees")
	require.Equal(t, TierSelf, scope.Tier)
	require.False(t, scope.All)
	require.Empty(t, scope.Units)
	require.False(t, scope.AllowsUnit(11), "view permission alone grants no unit scope")
	require.True(t, scope.AllowsUser(lecturer))
	require.False(t, scope.AllowsUser(hrAdmin))
}

func TestManagerWithoutAssignmentsFallsToSelf(t *testing.T) {
	// An update permission with zero active assignments must not widen to all
	// units; the empty subtree set means self-only.
	ctx := context.Background()
	resolver := fixtureResolver(t)
	resolver.assignments = &stubAssignments{homes: map[int64]org.UnitSet{}}

	scope := resolver.ResolveAccessibleUnits(ctx, deanICT, "hr.employees")
	require.Equal(t, TierSelf, scope.Tier)
	require.False(t, scope.All)
	require.False(t, scope.AllowsUnit(10))
}

func TestTierPrecedenceAdminBeatsManager(t *testing.T) {
	// hrAdmin holds both delete and update; the admin rule matches first even
	// though assignments would give a narrower manager scope.
	ctx := context.Background()
	resolver := fixtureResolver(t)

	scope := resolver.ResolveAccessibleUnits(ctx, hrAdmin, "hr.employees")
	require.Equal(t, TierAdmin, scope.Tier)
}

func TestAuthorizeTargetUnit(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)

	require.True(t, resolver.Authorize(ctx, deanICT, shared.PermEmployeesUpdate, ptr(11)))
	require.False(t, resolver.Authorize(ctx, deanICT, shared.PermEmployeesUpdate, ptr(20)))
	require.False(t, resolver.Authorize(ctx, deanICT, shared.PermEmployeesUpdate, ptr(999)))
	require.True(t, resolver.Authorize(ctx, hrAdmin, shared.PermEmployeesDelete, ptr(20)))
	require.False(t, resolver.Authorize(ctx, lecturer, shared.PermEmployeesUpdate, ptr(11)), "missing permission fails before scoping")
}

func TestAuthorizeFlatCheck(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)

	require.True(t, resolver.Authorize(ctx, lecturer, shared.PermEmployeesView, nil))
	require.False(t, resolver.Authorize(ctx, lecturer, shared.PermEmployeesDelete, nil))
}

func TestResolverDegradesOnPermissionFailure(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)
	resolver.perms = &stubPerms{err: errors.New("connection refused")}

	require.Empty(t, resolver.ResolvePermissions(ctx, hrAdmin))
	require.False(t, resolver.Authorize(ctx, hrAdmin, shared.PermEmployeesDelete, nil))
	scope := resolver.ResolveAccessibleUnits(ctx, hrAdmin, "hr.employees")
	require.Equal(t, TierSelf, scope.Tier)
}

func TestResolverDegradesOnHierarchyFailure(t *testing.T) {
	// When the hierarchy cannot be loaded the manager scope narrows to the
	// assigned units themselves rather than failing or widening.
	ctx := context.Background()
	resolver := fixtureResolver(t)
	resolver.hierarchy = &stubHierarchy{err: errors.New("connection refused")}

	scope := resolver.ResolveAccessibleUnits(ctx, deanICT, "hr.employees")
	require.Equal(t, TierManager, scope.Tier)
	require.True(t, scope.AllowsUnit(10))
	require.False(t, scope.AllowsUnit(11))
}

func TestUnknownResourceIsSelfOnly(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)

	scope := resolver.ResolveAccessibleUnits(ctx, hrAdmin, "finance.budgets")
	require.Equal(t, TierSelf, scope.Tier)
}

func TestOnDecisionObserved(t *testing.T) {
	ctx := context.Background()
	resolver := fixtureResolver(t)

	var gotResource string
	var gotTier Tier
	var gotAllowed bool
	resolver.OnDecision = func(resource string, tier Tier, allowed bool) {
		gotResource, gotTier, gotAllowed = resource, tier, allowed
	}

	resolver.Authorize(ctx, deanICT, shared.PermEmployeesUpdate, ptr(20))
	require.Equal(t, "hr.employees", gotResource)
	require.Equal(t, TierManager, gotTier)
	require.False(t, gotAllowed)
}

func TestResourceOf(t *testing.T) {
	require.Equal(t, "hr.employees", ResourceOf(shared.PermEmployeesUpdate))
	require.Equal(t, "healthz", ResourceOf("healthz"))
}
