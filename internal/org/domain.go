package org

import "time"

// Unit statuses. Units are never hard-deleted while referenced; structural
// removal archives the unit instead.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Unit is a node in the organizational tree. ParentID is nil for roots
// (university, campuses).
type Unit struct {
	ID        int64     `json:"id"`
	ParentID  *int64    `json:"parent_id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TreeNode is a unit with its resolved children, for display.
type TreeNode struct {
	Unit     Unit        `json:"unit"`
	Children []*TreeNode `json:"children"`
}

// UnitSet is a set of unit ids, the scoping domain for permission checks.
type UnitSet map[int64]struct{}

// Contains reports membership. A nil set contains nothing.
func (s UnitSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members as a slice, order unspecified.
func (s UnitSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
