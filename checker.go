package rbackit

// Checker answers role and permission questions for one subject's RoleSet.
// It is typically built once per request and stored in context.
type Checker struct {
	subjectID int64
	roles     *RoleSet
}

// NewChecker creates a new Checker. A nil RoleSet denies everything.
func NewChecker(subjectID int64, roles *RoleSet) *Checker {
	if roles == nil {
		roles = NewRoleSet()
	}
	return &Checker{
		subjectID: subjectID,
		roles:     roles,
	}
}

// SubjectID returns the subject ID this checker is for.
func (c *Checker) SubjectID() int64 {
	return c.subjectID
}

// Can checks if the subject holds the named permission.
//
// Example:
//
//	if checker.Can("articles.publish") {
//	    // Subject may publish
//	}
func (c *Checker) Can(permission string) bool {
	return c.roles.HasPermission(permission)
}

// HasAnyPermission checks if the subject holds at least one of the permissions.
func (c *Checker) HasAnyPermission(permissions ...string) bool {
	for _, p := range permissions {
		if c.roles.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks if the subject holds every one of the permissions.
// An empty list is trivially satisfied.
func (c *Checker) HasAllPermissions(permissions ...string) bool {
	for _, p := range permissions {
		if !c.roles.HasPermission(p) {
			return false
		}
	}
	return true
}

// HasRole checks if the subject holds the named role.
func (c *Checker) HasRole(role string) bool {
	return c.roles.HasRole(role)
}

// HasAnyRole checks if the subject holds any of the specified roles.
//
// Example:
//
//	if checker.HasAnyRole("admin", "owner") {
//	    // Subject is either admin or owner
//	}
func (c *Checker) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.roles.HasRole(role) {
			return true
		}
	}
	return false
}

// HasAllRoles checks if the subject holds all of the specified roles.
func (c *Checker) HasAllRoles(roles ...string) bool {
	for _, role := range roles {
		if !c.roles.HasRole(role) {
			return false
		}
	}
	return true
}

// Require returns an error wrapping ErrInsufficientPermission when Can(permission) is false.
func (c *Checker) Require(permission string) error {
	if !c.Can(permission) {
		return NewError(ErrInsufficientPermission, "permission not granted").
			WithPermission(permission).
			WithSubject(c.subjectID)
	}
	return nil
}

// GetPermissions returns the names of all permissions the subject holds.
func (c *Checker) GetPermissions() []string {
	return PermissionNames(c.roles.Permissions())
}
