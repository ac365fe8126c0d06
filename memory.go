package rbackit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	errDuplicateName = errors.New("name already exists")
	errMissingRow    = errors.New("referenced row does not exist")
)

// MemoryStorage is a Storage kept in process memory. It enforces the same
// constraints as the SQL schema (unique names, existing link targets) and is
// safe for concurrent use. It suits tests and single-process tools.
type MemoryStorage struct {
	mu sync.RWMutex

	permissions map[int64]Permission
	roles       map[int64]Role
	rolePerms   map[int64]map[int64]struct{} // role ID -> permission IDs
	subjects    map[int64]map[int64]struct{} // subject ID -> role IDs

	nextPermissionID int64
	nextRoleID       int64

	logger Logger
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage(logger Logger) *MemoryStorage {
	return &MemoryStorage{
		permissions: make(map[int64]Permission),
		roles:       make(map[int64]Role),
		rolePerms:   make(map[int64]map[int64]struct{}),
		subjects:    make(map[int64]map[int64]struct{}),
		logger:      logger,
	}
}

// SavePermission inserts or updates a permission.
func (m *MemoryStorage) SavePermission(_ context.Context, p *Permission) (bool, error) {
	if err := ValidatePermission(p); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.permissions {
		if existing.Name == p.Name && id != p.ID {
			logError(m.logger, "SavePermission", "permission name already exists", errDuplicateName)
			return false, nil
		}
	}

	now := time.Now().UTC()
	if p.ID == 0 {
		m.nextPermissionID++
		p.ID = m.nextPermissionID
		p.AddedOn = now
	} else if _, ok := m.permissions[p.ID]; !ok {
		// An UPDATE matching no rows is not an error in SQL either.
		return true, nil
	}
	p.UpdatedOn = now
	m.permissions[p.ID] = *p
	return true, nil
}

// FetchPermissionByID returns a copy of the stored permission.
func (m *MemoryStorage) FetchPermissionByID(_ context.Context, id int64) (*Permission, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.permissions[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

// FetchPermissionsByID returns copies of the stored permissions with the given IDs.
func (m *MemoryStorage) FetchPermissionsByID(_ context.Context, ids []int64) []*Permission {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perms := make([]*Permission, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		if p, ok := m.permissions[id]; ok {
			perms = append(perms, &p)
		}
	}
	return perms
}

// FetchAllPermissions returns every permission ordered by name.
func (m *MemoryStorage) FetchAllPermissions(_ context.Context) []*Permission {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perms := make([]*Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		perms = append(perms, &p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

// DeletePermission removes a permission and its role links.
func (m *MemoryStorage) DeletePermission(_ context.Context, p *Permission) (bool, error) {
	if !p.IsPersisted() {
		return false, NewError(ErrValidation, "permission is in an invalid state")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.permissions, p.ID)
	for _, linked := range m.rolePerms {
		delete(linked, p.ID)
	}
	p.ID = 0
	return true, nil
}

// SaveRole inserts or updates a role, then links its attached permissions.
func (m *MemoryStorage) SaveRole(ctx context.Context, r *Role) (bool, error) {
	if err := ValidateRole(r); err != nil {
		return false, err
	}

	if !m.storeRole(r) {
		return false, nil
	}

	for _, p := range r.permissions {
		if ok, err := m.AddRolePermission(ctx, r, p); err != nil || !ok {
			logDebug(m.logger, "role permission link not written", "role", r.Name, "permission", p.Name)
		}
	}
	return true, nil
}

func (m *MemoryStorage) storeRole(r *Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.roles {
		if existing.Name == r.Name && id != r.ID {
			logError(m.logger, "SaveRole", "role name already exists", errDuplicateName)
			return false
		}
	}

	now := time.Now().UTC()
	if r.ID == 0 {
		m.nextRoleID++
		r.ID = m.nextRoleID
		r.AddedOn = now
	} else if _, ok := m.roles[r.ID]; !ok {
		return true
	}
	r.UpdatedOn = now

	stored := Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		AddedOn:     r.AddedOn,
		UpdatedOn:   r.UpdatedOn,
	}
	m.roles[r.ID] = stored
	return true
}

// AddRolePermission links a permission to a role. Linking twice succeeds.
func (m *MemoryStorage) AddRolePermission(_ context.Context, r *Role, p *Permission) (bool, error) {
	if !r.IsPersisted() || !p.IsPersisted() {
		return false, NewError(ErrValidation, "role or permission is in an invalid state").
			WithRole(roleName(r)).WithPermission(permissionName(p))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, roleOK := m.roles[r.ID]
	_, permOK := m.permissions[p.ID]
	if !roleOK || !permOK {
		logError(m.logger, "AddRolePermission", "failed to add permission to role", errMissingRow)
		return false, nil
	}
	linked, ok := m.rolePerms[r.ID]
	if !ok {
		linked = make(map[int64]struct{})
		m.rolePerms[r.ID] = linked
	}
	linked[p.ID] = struct{}{}
	return true, nil
}

// RemoveRolePermission unlinks a permission from a role.
func (m *MemoryStorage) RemoveRolePermission(_ context.Context, r *Role, p *Permission) (bool, error) {
	if !r.IsPersisted() || !p.IsPersisted() {
		return false, NewError(ErrValidation, "role or permission is in an invalid state").
			WithRole(roleName(r)).WithPermission(permissionName(p))
	}

	m.mu.Lock()
	delete(m.rolePerms[r.ID], p.ID)
	m.mu.Unlock()

	r.RemovePermission(p)
	return true, nil
}

// DeleteRole removes a role with its permission and subject links.
func (m *MemoryStorage) DeleteRole(_ context.Context, r *Role) (bool, error) {
	if !r.IsPersisted() {
		return false, NewError(ErrValidation, "role is in an invalid state").WithRole(roleName(r))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.roles, r.ID)
	delete(m.rolePerms, r.ID)
	for _, roleIDs := range m.subjects {
		delete(roleIDs, r.ID)
	}
	r.ID = 0
	return true, nil
}

// roleCopy returns a detached copy of a stored role carrying its permission IDs.
// Callers must hold m.mu.
func (m *MemoryStorage) roleCopy(stored Role) *Role {
	role := stored
	ids := make([]int64, 0, len(m.rolePerms[stored.ID]))
	for id := range m.rolePerms[stored.ID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	role.SetPermissionIDs(ids...)
	return &role
}

// FetchAllRoles returns every role ordered by name.
func (m *MemoryStorage) FetchAllRoles(_ context.Context) []*Role {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roles := make([]*Role, 0, len(m.roles))
	for _, stored := range m.roles {
		roles = append(roles, m.roleCopy(stored))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles
}

// FetchRoleByName returns the role with the given name.
func (m *MemoryStorage) FetchRoleByName(_ context.Context, name string) (*Role, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, stored := range m.roles {
		if stored.Name == name {
			return m.roleCopy(stored), true
		}
	}
	return nil, false
}

// FetchRoleByID returns the role with the given ID.
func (m *MemoryStorage) FetchRoleByID(_ context.Context, id int64) (*Role, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.roles[id]
	if !ok {
		return nil, false
	}
	return m.roleCopy(stored), true
}

// FetchRolesByID returns the roles with the given IDs.
func (m *MemoryStorage) FetchRolesByID(_ context.Context, ids []int64) []*Role {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rolesByID(ids)
}

func (m *MemoryStorage) rolesByID(ids []int64) []*Role {
	roles := make([]*Role, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		if stored, ok := m.roles[id]; ok {
			roles = append(roles, m.roleCopy(stored))
		}
	}
	return roles
}

// FetchPermissionsByRole returns the permissions linked to r, ordered by name.
func (m *MemoryStorage) FetchPermissionsByRole(_ context.Context, r *Role) []*Permission {
	if !r.IsPersisted() {
		return []*Permission{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	perms := make([]*Permission, 0, len(m.rolePerms[r.ID]))
	for id := range m.rolePerms[r.ID] {
		if p, ok := m.permissions[id]; ok {
			perms = append(perms, &p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

// FetchSubjectRoles returns the roles linked to the subject.
func (m *MemoryStorage) FetchSubjectRoles(_ context.Context, s Subject) []*Role {
	if s == nil || s.ID() == 0 {
		return []*Role{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.subjects[s.ID()]))
	for id := range m.subjects[s.ID()] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return m.rolesByID(ids)
}

// AddSubjectRole links a role to a subject. Linking twice succeeds.
func (m *MemoryStorage) AddSubjectRole(_ context.Context, r *Role, subjectID int64) (bool, error) {
	if subjectID == 0 || !r.IsPersisted() {
		return false, NewError(ErrValidation, "role or subject is in an invalid state").
			WithRole(roleName(r)).WithSubject(subjectID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roles[r.ID]; !ok {
		logError(m.logger, "AddSubjectRole", "failed to add role to subject", errMissingRow)
		return false, nil
	}
	roleIDs, ok := m.subjects[subjectID]
	if !ok {
		roleIDs = make(map[int64]struct{})
		m.subjects[subjectID] = roleIDs
	}
	roleIDs[r.ID] = struct{}{}
	return true, nil
}

// RemoveSubjectRole unlinks a role from a subject.
func (m *MemoryStorage) RemoveSubjectRole(_ context.Context, r *Role, subjectID int64) (bool, error) {
	if subjectID == 0 || !r.IsPersisted() {
		return false, NewError(ErrValidation, "role or subject is in an invalid state").
			WithRole(roleName(r)).WithSubject(subjectID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subjects[subjectID], r.ID)
	return true, nil
}
