package authz

import (
	"context"
	"log/slog"

	"github.com/univera/univera/internal/org"
	"github.com/univera/univera/internal/rbac"
)

// Tier labels which rule of the scope decision table matched.
type Tier string

const (
	// TierAdmin grants unrestricted unit scope.
	TierAdmin Tier = "admin"
	// TierManager grants the subtrees under the user's active assignments.
	TierManager Tier = "manager"
	// TierSelf restricts access to the user's own records.
	TierSelf Tier = "self"
	// TierFlat labels checks without a target unit, where holding the
	// permission is sufficient.
	TierFlat Tier = "flat"
)

// Scope is the unit visibility resolved for one user and resource. Exactly
// one interpretation applies: everything (All), an explicit unit set, or
// self-only when the set is empty. An empty set is never a wildcard.
type Scope struct {
	Tier       Tier
	All        bool
	Units      org.UnitSet
	SelfUserID int64
}

// AllowsUnit reports whether the scope covers an org unit.
func (s Scope) AllowsUnit(id int64) bool {
	return s.All || s.Units.Contains(id)
}

// AllowsAny reports whether the scope covers at least one of the units.
func (s Scope) AllowsAny(units org.UnitSet) bool {
	if s.All {
		return true
	}
	for id := range units {
		if s.Units.Contains(id) {
			return true
		}
	}
	return false
}

// AllowsUser reports whether the scope's self rule covers a target user.
// Own records stay accessible in every tier.
func (s Scope) AllowsUser(targetUserID int64) bool {
	return s.All || targetUserID == s.SelfUserID
}

// PermissionSource resolves a user's effective permission set.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) (rbac.PermissionSet, error)
}

// HierarchySource loads the current org hierarchy index.
type HierarchySource interface {
	Snapshot(ctx context.Context) (*org.Hierarchy, error)
}

// AssignmentSource resolves the org units a user is actively assigned to.
type AssignmentSource interface {
	HomeUnits(ctx context.Context, userID int64) (org.UnitSet, error)
}

// Resolver computes hierarchical access scopes. It combines three inputs:
// the user's permission set, the org hierarchy, and the user's active
// assignments. Lookups that fail degrade to the most restrictive answer
// instead of surfacing errors; a broken dependency must never widen access
// or turn a listing into a 500.
type Resolver struct {
	perms       PermissionSource
	hierarchy   HierarchySource
	assignments AssignmentSource
	policies    map[string]ResourcePolicy
	logger      *slog.Logger

	// OnDecision, when set, observes every Authorize outcome.
	OnDecision func(resource string, tier Tier, allowed bool)
}

// NewResolver builds a resolver over the given sources and policies.
func NewResolver(logger *slog.Logger, perms PermissionSource, hierarchy HierarchySource, assignments AssignmentSource, policies []ResourcePolicy) *Resolver {
	byResource := make(map[string]ResourcePolicy, len(policies))
	for _, p := range policies {
		byResource[p.Resource] = p
	}
	return &Resolver{
		perms:       perms,
		hierarchy:   hierarchy,
		assignments: assignments,
		policies:    byResource,
		logger:      logger,
	}
}

// ResolvePermissions returns the user's effective permission set. Resolution
// failures are logged and answered with the empty set.
func (r *Resolver) ResolvePermissions(ctx context.Context, userID int64) rbac.PermissionSet {
	set, err := r.perms.EffectivePermissions(ctx, userID)
	if err != nil {
		r.logger.Error("resolve permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		return rbac.PermissionSet{}
	}
	return set
}

// ResolveAccessibleUnits applies the tier decision table for one resource.
// Rules are checked in order and the first match wins:
//
//  1. any admin permission        -> all units
//  2. any manage permission and
//     at least one active
//     assignment                  -> union of assignment subtrees
//  3. otherwise                   -> self-only
//
// A manage permission without active assignments falls through to self-only:
// no assignment means no subtree, never all units.
func (r *Resolver) ResolveAccessibleUnits(ctx context.Context, userID int64, resource string) Scope {
	set := r.ResolvePermissions(ctx, userID)
	return r.scopeFor(ctx, userID, resource, set)
}

func (r *Resolver) scopeFor(ctx context.Context, userID int64, resource string, set rbac.PermissionSet) Scope {
	policy := r.policies[resource]

	if len(policy.AdminPermissions) > 0 && set.HasAny(policy.AdminPermissions...) {
		return Scope{Tier: TierAdmin, All: true, SelfUserID: userID}
	}

	if len(policy.ManagePermissions) > 0 && set.HasAny(policy.ManagePermissions...) {
		homes, err := r.assignments.HomeUnits(ctx, userID)
		if err != nil {
			r.logger.Error("resolve home units", slog.Int64("user_id", userID), slog.Any("error", err))
			return Scope{Tier: TierSelf, SelfUserID: userID}
		}
		if len(homes) > 0 {
			return Scope{Tier: TierManager, Units: r.expand(ctx, homes), SelfUserID: userID}
		}
	}

	return Scope{Tier: TierSelf, SelfUserID: userID}
}

// expand widens the home units to the union of their subtrees. If the
// hierarchy cannot be loaded the home units stand on their own, which is
// narrower than the intended scope but never wider.
func (r *Resolver) expand(ctx context.Context, homes org.UnitSet) org.UnitSet {
	hierarchy, err := r.hierarchy.Snapshot(ctx)
	if err != nil {
		r.logger.Error("load org hierarchy", slog.Any("error", err))
		return homes
	}
	units := make(org.UnitSet, len(homes))
	for id := range homes {
		for descendant := range hierarchy.DescendantsOf(id) {
			units[descendant] = struct{}{}
		}
		// Units missing from the snapshot (archived after assignment) still
		// cover themselves.
		units[id] = struct{}{}
	}
	return units
}

// Authorize answers a single yes/no access question. Without a target unit it
// is a flat permission check; with one, the resolved scope must cover the
// unit. The resource is derived from the permission code.
func (r *Resolver) Authorize(ctx context.Context, userID int64, permissionCode string, targetUnitID *int64) bool {
	resource := ResourceOf(permissionCode)
	set := r.ResolvePermissions(ctx, userID)
	if !set.Has(permissionCode) {
		r.observe(resource, TierFlat, false)
		return false
	}
	if targetUnitID == nil {
		r.observe(resource, TierFlat, true)
		return true
	}
	scope := r.scopeFor(ctx, userID, resource, set)
	allowed := scope.AllowsUnit(*targetUnitID)
	r.observe(resource, scope.Tier, allowed)
	return allowed
}

func (r *Resolver) observe(resource string, tier Tier, allowed bool) {
	if r.OnDecision != nil {
		r.OnDecision(resource, tier, allowed)
	}
}
