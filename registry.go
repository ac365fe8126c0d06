package rbackit

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds declarative permission and role definitions for the application.
// It is built at startup and written to storage with RoleManager.Apply.
type Registry struct {
	mu          sync.RWMutex
	permissions map[string]*PermissionDefinition
	roles       map[string]*RoleDefinition

	// Definition order, so Apply writes rows in a stable sequence.
	permissionOrder []string
	roleOrder       []string
}

// PermissionDefinition defines a permission by name.
type PermissionDefinition struct {
	name        string
	description string
	registry    *Registry
}

// RoleDefinition defines a role and the permissions it grants.
type RoleDefinition struct {
	name        string
	description string
	grants      []string
	registry    *Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		permissions: make(map[string]*PermissionDefinition),
		roles:       make(map[string]*RoleDefinition),
	}
}

// Permission defines a permission. Redefining a name replaces its description.
//
// Example:
//
//	registry.
//	    Permission("read", "can read").
//	    Permission("write", "can write").
//	    Role("editor", "edits content").Grants("read", "write")
func (r *Registry) Permission(name, description string) *PermissionDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def, ok := r.permissions[name]; ok {
		def.description = description
		return def
	}
	def := &PermissionDefinition{name: name, description: description, registry: r}
	r.permissions[name] = def
	r.permissionOrder = append(r.permissionOrder, name)
	return def
}

// Role defines a role. Redefining a name replaces its description and keeps its grants.
func (r *Registry) Role(name, description string) *RoleDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def, ok := r.roles[name]; ok {
		def.description = description
		return def
	}
	def := &RoleDefinition{name: name, description: description, registry: r}
	r.roles[name] = def
	r.roleOrder = append(r.roleOrder, name)
	return def
}

// GetPermission returns a permission definition, or nil if not defined.
func (r *Registry) GetPermission(name string) *PermissionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.permissions[name]
}

// GetRole returns a role definition, or nil if not defined.
func (r *Registry) GetRole(name string) *RoleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[name]
}

// GetPermissions returns all permission names in definition order.
func (r *Registry) GetPermissions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.permissionOrder...)
}

// GetRoles returns all role names in definition order.
func (r *Registry) GetRoles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.roleOrder...)
}

// Validate checks every name and that every grant refers to a defined permission.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.permissionOrder {
		def := r.permissions[name]
		if err := ValidatePermission(NewPermission(def.name, def.description)); err != nil {
			return err
		}
	}
	for _, name := range r.roleOrder {
		def := r.roles[name]
		if err := ValidateRole(&Role{Name: def.name, Description: def.description}); err != nil {
			return err
		}
		for _, grant := range def.grants {
			if _, ok := r.permissions[grant]; !ok {
				return NewError(ErrInvalidPermission, fmt.Sprintf("permission %q not defined", grant)).
					WithRole(def.name).WithPermission(grant)
			}
		}
	}
	return nil
}

// Name returns the permission name.
func (p *PermissionDefinition) Name() string {
	return p.name
}

// Description returns the permission description.
func (p *PermissionDefinition) Description() string {
	p.registry.mu.RLock()
	defer p.registry.mu.RUnlock()
	return p.description
}

// Permission continues defining permissions on the registry (fluent API).
func (p *PermissionDefinition) Permission(name, description string) *PermissionDefinition {
	return p.registry.Permission(name, description)
}

// Role continues with a role definition on the registry (fluent API).
func (p *PermissionDefinition) Role(name, description string) *RoleDefinition {
	return p.registry.Role(name, description)
}

// Grants adds permissions granted by this role. Repeated names are ignored.
//
// Example:
//
//	role.Grants("files.read", "files.write")
func (d *RoleDefinition) Grants(permissions ...string) *RoleDefinition {
	d.registry.mu.Lock()
	defer d.registry.mu.Unlock()

next:
	for _, name := range permissions {
		for _, existing := range d.grants {
			if existing == name {
				continue next
			}
		}
		d.grants = append(d.grants, name)
	}
	return d
}

// Role continues defining roles on the registry (fluent API).
func (d *RoleDefinition) Role(name, description string) *RoleDefinition {
	return d.registry.Role(name, description)
}

// Permission continues with a permission definition on the registry (fluent API).
func (d *RoleDefinition) Permission(name, description string) *PermissionDefinition {
	return d.registry.Permission(name, description)
}

// Name returns the role name.
func (d *RoleDefinition) Name() string {
	return d.name
}

// Description returns the role description.
func (d *RoleDefinition) Description() string {
	d.registry.mu.RLock()
	defer d.registry.mu.RUnlock()
	return d.description
}

// GetGrants returns the permission names granted by this role.
func (d *RoleDefinition) GetGrants() []string {
	d.registry.mu.RLock()
	defer d.registry.mu.RUnlock()
	return append([]string(nil), d.grants...)
}

// ============================================================================
// APPLY
// ============================================================================

// Apply writes the registry's definitions to storage. Missing permissions and
// roles are created, changed descriptions are updated and missing grants are
// linked. Nothing is removed, so applying the same registry twice is a no-op.
//
// A storage failure stops Apply with an error wrapping ErrStorage; rows written
// before the failure remain.
func (m *RoleManager) Apply(ctx context.Context, registry *Registry) error {
	if err := registry.Validate(); err != nil {
		return err
	}

	perms := make(map[string]*Permission)
	for _, p := range m.storage.FetchAllPermissions(ctx) {
		perms[p.Name] = p
	}

	for _, name := range registry.GetPermissions() {
		description := registry.GetPermission(name).Description()
		p, exists := perms[name]
		if exists && p.Description == description {
			continue
		}
		if !exists {
			p = NewPermission(name, description)
			perms[name] = p
		}
		p.Description = description
		if ok, err := m.storage.SavePermission(ctx, p); err != nil {
			return err
		} else if !ok {
			return NewError(ErrStorage, "failed to save permission").WithPermission(name)
		}
	}

	for _, name := range registry.GetRoles() {
		def := registry.GetRole(name)
		description, grants := def.Description(), def.GetGrants()
		role, exists := m.FetchRoleByName(ctx, name)
		if !exists || role.Description != description {
			if !exists {
				role = &Role{Name: name}
			}
			role.Description = description
			if ok, err := m.storage.SaveRole(ctx, role); err != nil {
				return err
			} else if !ok {
				return NewError(ErrStorage, "failed to save role").WithRole(name)
			}
		}

		for _, grant := range grants {
			if role.HasPermission(grant) {
				continue
			}
			if ok, err := m.AddRolePermission(ctx, role, perms[grant]); err != nil {
				return err
			} else if !ok {
				return NewError(ErrStorage, "failed to grant permission").WithRole(name).WithPermission(grant)
			}
		}
		logDebug(m.logger, "role applied", "role", name, "grants", len(grants))
	}
	return nil
}
