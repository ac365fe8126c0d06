package rbackit

import (
	"time"

	"github.com/uptrace/bun"
)

// Permission is an atomic, named capability that can be granted to roles.
// ID is zero until the permission has been persisted.
type Permission struct {
	bun.BaseModel `bun:"table:auth_permission,alias:p"`

	ID          int64     `bun:"permission_id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique" validate:"required,max=32"`
	Description string    `bun:"description,notnull"`
	AddedOn     time.Time `bun:"added_on,nullzero"`
	UpdatedOn   time.Time `bun:"updated_on,nullzero"`
}

// NewPermission creates an unsaved permission.
func NewPermission(name, description string) *Permission {
	return &Permission{Name: name, Description: description}
}

// String returns the permission name.
func (p *Permission) String() string {
	return p.Name
}

// IsPersisted reports whether the permission has been assigned an ID by storage.
func (p *Permission) IsPersisted() bool {
	return p != nil && p.ID != 0
}

// sameAs reports whether p and other identify the same permission:
// the same pointer, or both persisted with equal IDs.
func (p *Permission) sameAs(other *Permission) bool {
	if p == other {
		return true
	}
	return p != nil && other != nil && p.ID != 0 && p.ID == other.ID
}

// Role is a named bundle of permissions assignable to subjects.
type Role struct {
	bun.BaseModel `bun:"table:auth_role,alias:r"`

	ID          int64     `bun:"role_id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique" validate:"required,max=32"`
	Description string    `bun:"description,notnull"`
	AddedOn     time.Time `bun:"added_on,nullzero"`
	UpdatedOn   time.Time `bun:"updated_on,nullzero"`

	permissions []*Permission

	// IDs of linked permissions as reported by storage, used for batched hydration.
	permissionIDs []int64
}

// NewRole creates an unsaved role with an initial set of permissions.
// Every permission must already be persisted.
func NewRole(name, description string, permissions ...*Permission) (*Role, error) {
	role := &Role{Name: name, Description: description}
	for _, p := range permissions {
		if _, err := role.AddPermission(p); err != nil {
			return nil, err
		}
	}
	return role, nil
}

// String returns the role name.
func (r *Role) String() string {
	return r.Name
}

// IsPersisted reports whether the role has been assigned an ID by storage.
func (r *Role) IsPersisted() bool {
	return r != nil && r.ID != 0
}

func (r *Role) sameAs(other *Role) bool {
	if r == other {
		return true
	}
	return r != nil && other != nil && r.ID != 0 && r.ID == other.ID
}

// HasPermission checks if the role grants the named permission.
// Matching is exact and case-sensitive; an empty name never matches.
func (r *Role) HasPermission(name string) bool {
	if name == "" {
		return false
	}
	for _, p := range r.permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// AddPermission attaches a persisted permission to the role.
// Returns false if the permission is already attached.
func (r *Role) AddPermission(p *Permission) (bool, error) {
	if !p.IsPersisted() {
		return false, NewError(ErrValidation, "permission has no ID").WithRole(r.Name)
	}
	for _, existing := range r.permissions {
		if existing.sameAs(p) {
			return false, nil
		}
	}
	r.permissions = append(r.permissions, p)
	return true, nil
}

// RemovePermission detaches a permission from the in-memory role.
// Returns false if it was not attached.
func (r *Role) RemovePermission(p *Permission) bool {
	for i, existing := range r.permissions {
		if existing.sameAs(p) {
			r.permissions = append(r.permissions[:i], r.permissions[i+1:]...)
			return true
		}
	}
	return false
}

// Permissions returns the permissions attached to the role.
func (r *Role) Permissions() []*Permission {
	out := make([]*Permission, len(r.permissions))
	copy(out, r.permissions)
	return out
}

// PermissionIDs returns the IDs of permissions linked to this role in storage.
// It is populated by Storage role fetches and consumed during hydration.
func (r *Role) PermissionIDs() []int64 {
	out := make([]int64, len(r.permissionIDs))
	copy(out, r.permissionIDs)
	return out
}

// SetPermissionIDs records the linked permission IDs reported by storage.
// Storage implementations call this on the roles they return.
func (r *Role) SetPermissionIDs(ids ...int64) {
	r.permissionIDs = append(r.permissionIDs[:0], ids...)
}

// RoleSet is the resolved collection of roles held by a subject.
// It is rebuilt from storage on every load and never persisted itself.
type RoleSet struct {
	roles []*Role
}

// NewRoleSet creates a RoleSet, dropping duplicate roles.
func NewRoleSet(roles ...*Role) *RoleSet {
	rs := &RoleSet{}
	for _, role := range roles {
		rs.AddRole(role)
	}
	return rs
}

// AddRole adds a role to the set. Returns false if the role is nil or already present.
func (rs *RoleSet) AddRole(role *Role) bool {
	if role == nil {
		return false
	}
	for _, existing := range rs.roles {
		if existing.sameAs(role) {
			return false
		}
	}
	rs.roles = append(rs.roles, role)
	return true
}

// Roles returns the roles in insertion order.
func (rs *RoleSet) Roles() []*Role {
	out := make([]*Role, len(rs.roles))
	copy(out, rs.roles)
	return out
}

// Len returns the number of roles in the set.
func (rs *RoleSet) Len() int {
	return len(rs.roles)
}

// HasRole checks if a role with the given name is in the set.
func (rs *RoleSet) HasRole(name string) bool {
	for _, role := range rs.roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// HasPermission checks if any role in the set grants the named permission.
func (rs *RoleSet) HasPermission(name string) bool {
	for _, role := range rs.roles {
		if role.HasPermission(name) {
			return true
		}
	}
	return false
}

// Permissions returns the union of permissions across all roles,
// de-duplicated by identity, in first-seen order.
func (rs *RoleSet) Permissions() []*Permission {
	var out []*Permission
	for _, role := range rs.roles {
	next:
		for _, p := range role.permissions {
			for _, seen := range out {
				if seen.sameAs(p) {
					continue next
				}
			}
			out = append(out, p)
		}
	}
	return out
}

// rolePermission is a row of the role to permission join table.
type rolePermission struct {
	bun.BaseModel `bun:"table:auth_role_permissions,alias:rp"`

	RoleID       int64     `bun:"role_id,pk"`
	PermissionID int64     `bun:"permission_id,pk"`
	AddedOn      time.Time `bun:"added_on,nullzero"`
}

// subjectRole is a row of the subject to role join table.
type subjectRole struct {
	bun.BaseModel `bun:"table:auth_subject_role,alias:sr"`

	SubjectID int64 `bun:"subject_id,pk"`
	RoleID    int64 `bun:"role_id,pk"`
}
