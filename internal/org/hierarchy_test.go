package org

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func fixtureUnits() []Unit {
	return []Unit{
		{ID: 1, Code: "UNIV", Name: "University", Type: "university"},
		{ID: 10, ParentID: ptr(1), Code: "ICT", Name: "Faculty of ICT", Type: "faculty"},
		{ID: 11, ParentID: ptr(10), Code: "SE", Name: "Dept of Software Engineering", Type: "department"},
		{ID: 12, ParentID: ptr(10), Code: "CS", Name: "Dept of Computer Science", Type: "department"},
		{ID: 20, ParentID: ptr(1), Code: "MED", Name: "Faculty of Medicine", Type: "faculty"},
	}
}

func TestDescendantsIncludesSelf(t *testing.T) {
	h := NewHierarchy(fixtureUnits())
	set := h.DescendantsOf(10)
	require.True(t, set.Contains(10))
	require.True(t, set.Contains(11))
	require.True(t, set.Contains(12))
	require.False(t, set.Contains(20))
	require.Len(t, set, 3)
}

func TestDescendantsSupersetOfChildren(t *testing.T) {
	h := NewHierarchy(fixtureUnits())
	parent := h.DescendantsOf(1)
	for _, child := range h.ChildrenOf(1) {
		for id := range h.DescendantsOf(child.ID) {
			require.True(t, parent.Contains(id), "descendants of %d must include %d", 1, id)
		}
	}
}

func TestDescendantsUnknownUnit(t *testing.T) {
	h := NewHierarchy(fixtureUnits())
	require.Empty(t, h.DescendantsOf(999))
}

func TestDescendantsCycleSafety(t *testing.T) {
	// A data-integrity bug that makes two units each other's parent must not
	// cause non-termination; each node is returned exactly once.
	units := []Unit{
		{ID: 1, ParentID: ptr(2), Code: "A", Name: "A", Type: "faculty"},
		{ID: 2, ParentID: ptr(1), Code: "B", Name: "B", Type: "faculty"},
	}
	h := NewHierarchy(units)
	set := h.DescendantsOf(1)
	require.Len(t, set, 2)
	require.True(t, set.Contains(1))
	require.True(t, set.Contains(2))
}

func TestChildrenOfDirectOnly(t *testing.T) {
	h := NewHierarchy(fixtureUnits())
	children := h.ChildrenOf(1)
	require.Len(t, children, 2)
	for _, child := range children {
		require.NotEqual(t, int64(11), child.ID)
	}
}

func TestRootsAndTree(t *testing.T) {
	h := NewHierarchy(fixtureUnits())
	roots := h.Roots()
	require.Len(t, roots, 1)
	require.Equal(t, int64(1), roots[0].ID)

	tree := h.Tree()
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 2)
}

func TestRootsIncludeOrphans(t *testing.T) {
	units := append(fixtureUnits(), Unit{ID: 30, ParentID: ptr(777), Code: "ORPH", Name: "Orphaned", Type: "unit"})
	h := NewHierarchy(units)
	roots := h.Roots()
	require.Len(t, roots, 2)
}

func TestTreeTerminatesOnCycle(t *testing.T) {
	units := []Unit{
		{ID: 1, ParentID: ptr(2), Code: "A", Name: "A", Type: "faculty"},
		{ID: 2, ParentID: ptr(1), Code: "B", Name: "B", Type: "faculty"},
	}
	h := NewHierarchy(units)
	// Both nodes have in-index parents, so neither is a root; the tree is
	// empty rather than infinite.
	require.Empty(t, h.Tree())
}
