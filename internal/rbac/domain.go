package rbac

import (
	"strings"
	"time"
)

// Role represents a named bundle of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability identified by a dotted code
// (resource.action). No code implies another; membership is exact match.
type Permission struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// UserRole links a user to a role.
type UserRole struct {
	UserID    int64     `json:"user_id"`
	RoleID    int64     `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PermissionSet is the deduplicated union of permission codes a user holds.
// The zero value is a valid empty set.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from raw codes, lowercasing and trimming.
func NewPermissionSet(codes []string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, code := range codes {
		code = NormalizeCode(code)
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

// NormalizeCode canonicalises a permission code for comparison.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Has reports whether the set contains the given code.
func (s PermissionSet) Has(code string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[NormalizeCode(code)]
	return ok
}

// HasAny reports whether the set contains at least one of the codes.
// An empty requirement list is trivially satisfied.
func (s PermissionSet) HasAny(codes ...string) bool {
	if len(codes) == 0 {
		return true
	}
	for _, code := range codes {
		if s.Has(code) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every one of the codes.
func (s PermissionSet) HasAll(codes ...string) bool {
	for _, code := range codes {
		if !s.Has(code) {
			return false
		}
	}
	return true
}

// Codes returns the set as a slice, order unspecified.
func (s PermissionSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	return codes
}
