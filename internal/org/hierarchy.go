package org

// Hierarchy is an in-memory index of the unit tree, rebuilt per request from
// the repository snapshot. Traversal uses an explicit worklist and a visited
// set: a malformed hierarchy (accidental cycle, orphaned parent pointer) must
// degrade to a finite answer, never hang or blow the stack.
type Hierarchy struct {
	byID     map[int64]Unit
	children map[int64][]int64
}

// NewHierarchy indexes the given units by id and parent edge.
func NewHierarchy(units []Unit) *Hierarchy {
	h := &Hierarchy{
		byID:     make(map[int64]Unit, len(units)),
		children: make(map[int64][]int64),
	}
	for _, unit := range units {
		h.byID[unit.ID] = unit
	}
	for _, unit := range units {
		if unit.ParentID == nil {
			continue
		}
		h.children[*unit.ParentID] = append(h.children[*unit.ParentID], unit.ID)
	}
	return h
}

// Get returns the indexed unit, if present.
func (h *Hierarchy) Get(id int64) (Unit, bool) {
	unit, ok := h.byID[id]
	return unit, ok
}

// ChildrenOf returns the direct children of a unit. Unknown ids yield nil.
func (h *Hierarchy) ChildrenOf(id int64) []Unit {
	ids := h.children[id]
	units := make([]Unit, 0, len(ids))
	for _, childID := range ids {
		units = append(units, h.byID[childID])
	}
	return units
}

// DescendantsOf returns the full subtree rooted at id, including id itself.
// An id not present in the hierarchy yields an empty set.
func (h *Hierarchy) DescendantsOf(id int64) UnitSet {
	set := make(UnitSet)
	if _, ok := h.byID[id]; !ok {
		return set
	}
	worklist := []int64{id}
	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]
		if set.Contains(current) {
			// Cycle edge: stop expanding, the node is already accounted for.
			continue
		}
		set[current] = struct{}{}
		worklist = append(worklist, h.children[current]...)
	}
	return set
}

// Roots returns the units without a parent (or whose parent is not indexed).
func (h *Hierarchy) Roots() []Unit {
	var roots []Unit
	for _, unit := range h.byID {
		if unit.ParentID == nil {
			roots = append(roots, unit)
			continue
		}
		if _, ok := h.byID[*unit.ParentID]; !ok {
			roots = append(roots, unit)
		}
	}
	return roots
}

// Tree assembles the nested display view, visiting each unit at most once.
func (h *Hierarchy) Tree() []*TreeNode {
	visited := make(UnitSet)
	var build func(unit Unit) *TreeNode
	build = func(unit Unit) *TreeNode {
		node := &TreeNode{Unit: unit, Children: []*TreeNode{}}
		for _, child := range h.ChildrenOf(unit.ID) {
			if visited.Contains(child.ID) {
				continue
			}
			visited[child.ID] = struct{}{}
			node.Children = append(node.Children, build(child))
		}
		return node
	}
	var nodes []*TreeNode
	for _, root := range h.Roots() {
		if visited.Contains(root.ID) {
			continue
		}
		visited[root.ID] = struct{}{}
		nodes = append(nodes, build(root))
	}
	return nodes
}
