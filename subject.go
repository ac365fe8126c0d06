package rbackit

import "fmt"

// Subject is the entity (user, service) whose access is being checked.
// Identity and persistence of subjects belong to the application; rbackit
// only stores which role IDs are linked to a subject ID.
type Subject interface {
	// ID returns the unique, non-zero ID of the subject.
	ID() int64

	// LoadRoleSet replaces the subject's current RoleSet.
	LoadRoleSet(roles *RoleSet)

	// RoleSet returns the currently loaded RoleSet.
	RoleSet() *RoleSet
}

// BasicSubject is a ready-made Subject implementation holding an ID and a RoleSet.
type BasicSubject struct {
	id    int64
	roles *RoleSet
}

// NewSubject creates a subject with the given ID. A nil RoleSet is replaced by an empty one.
func NewSubject(id int64, roles *RoleSet) *BasicSubject {
	s := &BasicSubject{id: id}
	s.LoadRoleSet(roles)
	return s
}

// ID returns the subject ID.
func (s *BasicSubject) ID() int64 {
	return s.id
}

// LoadRoleSet replaces the subject's RoleSet. nil loads an empty set.
func (s *BasicSubject) LoadRoleSet(roles *RoleSet) {
	if roles == nil {
		roles = NewRoleSet()
	}
	s.roles = roles
}

// RoleSet returns the currently loaded RoleSet.
func (s *BasicSubject) RoleSet() *RoleSet {
	return s.roles
}

// HasPermission checks if the subject holds the named permission through any role.
func (s *BasicSubject) HasPermission(name string) bool {
	if s.roles == nil {
		return false
	}
	return s.roles.HasPermission(name)
}

// Allows is HasPermission for a Permission value.
func (s *BasicSubject) Allows(p *Permission) bool {
	if p == nil {
		return false
	}
	return s.HasPermission(p.Name)
}

// RequirePermission returns an error wrapping ErrInsufficientPermission
// when the subject does not hold the named permission.
func (s *BasicSubject) RequirePermission(name string) error {
	if !s.HasPermission(name) {
		return NewError(ErrInsufficientPermission, fmt.Sprintf("insufficient permission to complete your request: %s", name)).
			WithPermission(name).
			WithSubject(s.id)
	}
	return nil
}

// Require is RequirePermission for a Permission value.
func (s *BasicSubject) Require(p *Permission) error {
	if p == nil {
		return NewError(ErrInvalidPermission, "nil permission").WithSubject(s.id)
	}
	return s.RequirePermission(p.Name)
}

// Checker returns a Checker over the subject's current RoleSet.
func (s *BasicSubject) Checker() *Checker {
	return NewChecker(s.id, s.roles)
}
