package rbackit

import (
	"context"
)

// RoleManager is the entry point for application code. Writes are delegated to
// the Storage; role reads additionally attach permissions to the returned roles
// using one batched permission fetch per call.
//
// The manager never retries. Storage failures arrive as false or empty results
// and are logged by the Storage; validation errors are returned unchanged.
type RoleManager struct {
	storage Storage
	logger  Logger
}

// ManagerOption configures the RoleManager.
type ManagerOption func(*RoleManager)

// WithManagerLogger sets the logger for manager-level diagnostics.
func WithManagerLogger(l Logger) ManagerOption {
	return func(m *RoleManager) {
		m.logger = l
	}
}

// NewRoleManager creates a manager over storage.
//
// Example:
//
//	adapter, _ := rbackit.NewSQLAdapter(db)
//	manager := rbackit.NewRoleManager(rbackit.NewCachedStorage(adapter, 0, 0))
func NewRoleManager(storage Storage, opts ...ManagerOption) *RoleManager {
	m := &RoleManager{storage: storage}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Storage returns the underlying storage.
func (m *RoleManager) Storage() Storage {
	return m.storage
}

// FetchOption tunes role reads.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	hydrate bool
}

// WithoutPermissions skips attaching permissions to fetched roles.
func WithoutPermissions() FetchOption {
	return func(o *fetchOptions) {
		o.hydrate = false
	}
}

func newFetchOptions(opts []FetchOption) fetchOptions {
	o := fetchOptions{hydrate: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ============================================================================
// PERMISSIONS
// ============================================================================

// SavePermission inserts or updates a permission.
func (m *RoleManager) SavePermission(ctx context.Context, p *Permission) (bool, error) {
	return m.storage.SavePermission(ctx, p)
}

// DeletePermission deletes a permission and its role links.
func (m *RoleManager) DeletePermission(ctx context.Context, p *Permission) (bool, error) {
	return m.storage.DeletePermission(ctx, p)
}

// FetchPermissionByID returns a single permission.
func (m *RoleManager) FetchPermissionByID(ctx context.Context, id int64) (*Permission, bool) {
	return m.storage.FetchPermissionByID(ctx, id)
}

// FetchPermissionsByID returns the permissions with the given IDs.
func (m *RoleManager) FetchPermissionsByID(ctx context.Context, ids []int64) []*Permission {
	return m.storage.FetchPermissionsByID(ctx, ids)
}

// FetchAllPermissions returns every permission ordered by name.
func (m *RoleManager) FetchAllPermissions(ctx context.Context) []*Permission {
	return m.storage.FetchAllPermissions(ctx)
}

// FetchPermissionsByRole returns the permissions linked to a role in storage.
func (m *RoleManager) FetchPermissionsByRole(ctx context.Context, r *Role) []*Permission {
	return m.storage.FetchPermissionsByRole(ctx, r)
}

// ============================================================================
// ROLES
// ============================================================================

// SaveRole inserts or updates a role and links its attached permissions.
func (m *RoleManager) SaveRole(ctx context.Context, r *Role) (bool, error) {
	return m.storage.SaveRole(ctx, r)
}

// DeleteRole deletes a role with its links.
func (m *RoleManager) DeleteRole(ctx context.Context, r *Role) (bool, error) {
	return m.storage.DeleteRole(ctx, r)
}

// AddRolePermission links p to r in storage and, on success, attaches it to r.
func (m *RoleManager) AddRolePermission(ctx context.Context, r *Role, p *Permission) (bool, error) {
	ok, err := m.storage.AddRolePermission(ctx, r, p)
	if ok {
		_, _ = r.AddPermission(p)
	}
	return ok, err
}

// RemoveRolePermission unlinks p from r in storage.
func (m *RoleManager) RemoveRolePermission(ctx context.Context, r *Role, p *Permission) (bool, error) {
	return m.storage.RemoveRolePermission(ctx, r, p)
}

// FetchAllRoles returns every role, with permissions unless WithoutPermissions is given.
func (m *RoleManager) FetchAllRoles(ctx context.Context, opts ...FetchOption) []*Role {
	roles := m.storage.FetchAllRoles(ctx)
	if newFetchOptions(opts).hydrate {
		m.hydrate(ctx, roles)
	}
	return roles
}

// FetchRoleByName returns the named role.
func (m *RoleManager) FetchRoleByName(ctx context.Context, name string, opts ...FetchOption) (*Role, bool) {
	role, ok := m.storage.FetchRoleByName(ctx, name)
	if ok && newFetchOptions(opts).hydrate {
		m.hydrate(ctx, []*Role{role})
	}
	return role, ok
}

// FetchRoleByID returns a single role.
func (m *RoleManager) FetchRoleByID(ctx context.Context, id int64, opts ...FetchOption) (*Role, bool) {
	role, ok := m.storage.FetchRoleByID(ctx, id)
	if ok && newFetchOptions(opts).hydrate {
		m.hydrate(ctx, []*Role{role})
	}
	return role, ok
}

// FetchRolesByID returns the roles with the given IDs.
func (m *RoleManager) FetchRolesByID(ctx context.Context, ids []int64, opts ...FetchOption) []*Role {
	roles := m.storage.FetchRolesByID(ctx, ids)
	if newFetchOptions(opts).hydrate {
		m.hydrate(ctx, roles)
	}
	return roles
}

// hydrate attaches permissions to roles using the permission IDs each role
// carries from storage. All permissions are fetched in a single call and then
// distributed to the roles that link them.
func (m *RoleManager) hydrate(ctx context.Context, roles []*Role) {
	var ids []int64
	for _, role := range roles {
		ids = append(ids, role.permissionIDs...)
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return
	}

	perms := m.storage.FetchPermissionsByID(ctx, ids)
	if len(perms) < len(ids) {
		logDebug(m.logger, "some linked permissions were not found",
			"requested", len(ids), "found", len(perms))
	}
	byID := permissionIndex(perms)
	for _, role := range roles {
		for _, id := range role.permissionIDs {
			if p, ok := byID[id]; ok {
				// Persisted permissions only; AddPermission cannot fail here.
				_, _ = role.AddPermission(p)
			}
		}
	}
}

// ============================================================================
// SUBJECTS
// ============================================================================

// FetchSubjectRoles returns the subject's roles with their permissions.
func (m *RoleManager) FetchSubjectRoles(ctx context.Context, s Subject) *RoleSet {
	roles := m.storage.FetchSubjectRoles(ctx, s)
	m.hydrate(ctx, roles)
	return NewRoleSet(roles...)
}

// LoadSubjectRoles fetches the subject's roles and replaces its RoleSet.
func (m *RoleManager) LoadSubjectRoles(ctx context.Context, s Subject) *RoleSet {
	roles := m.FetchSubjectRoles(ctx, s)
	if s != nil {
		s.LoadRoleSet(roles)
	}
	return roles
}

// AddSubjectToRole links the role to the subject and, on success, adds the
// role to the subject's loaded RoleSet.
func (m *RoleManager) AddSubjectToRole(ctx context.Context, r *Role, s Subject) (bool, error) {
	if s == nil {
		return false, NewError(ErrValidation, "nil subject").WithRole(roleName(r))
	}
	ok, err := m.storage.AddSubjectRole(ctx, r, s.ID())
	if !ok {
		return ok, err
	}
	roles := s.RoleSet()
	if roles == nil {
		roles = NewRoleSet()
		s.LoadRoleSet(roles)
	}
	roles.AddRole(r)
	return true, nil
}

// RemoveSubjectFromRole unlinks the role from the subject and drops it from the
// subject's loaded RoleSet.
func (m *RoleManager) RemoveSubjectFromRole(ctx context.Context, r *Role, s Subject) (bool, error) {
	if s == nil {
		return false, NewError(ErrValidation, "nil subject").WithRole(roleName(r))
	}
	ok, err := m.storage.RemoveSubjectRole(ctx, r, s.ID())
	if !ok {
		return ok, err
	}
	if roles := s.RoleSet(); roles != nil {
		remaining := make([]*Role, 0, roles.Len())
		for _, existing := range roles.Roles() {
			if !existing.sameAs(r) {
				remaining = append(remaining, existing)
			}
		}
		s.LoadRoleSet(NewRoleSet(remaining...))
	}
	return true, nil
}
