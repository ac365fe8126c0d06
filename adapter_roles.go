package rbackit

import (
	"context"
	"database/sql"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// roleRow scans a role together with the aggregated IDs of its linked permissions.
// The link count and ID sum verify the list: MySQL cuts GROUP_CONCAT output at
// group_concat_max_len, and a cut ID is a smaller, valid looking number.
type roleRow struct {
	Role            `bun:",extend"`
	PermissionIDs   sql.NullString `bun:"permission_ids,scanonly"`
	PermissionCount int64          `bun:"permission_count,scanonly"`
	PermissionSum   sql.NullInt64  `bun:"permission_sum,scanonly"`
}

// verified reports whether ids is the complete list the aggregate was built from.
func (row *roleRow) verified(ids []int64) bool {
	if int64(len(ids)) != row.PermissionCount {
		return false
	}
	var sum int64
	for _, id := range ids {
		sum += id
	}
	return sum == row.PermissionSum.Int64
}

// ============================================================================
// ROLE OPERATIONS
// ============================================================================

// SaveRole inserts a new role or updates an existing one, then links every
// attached permission. The links are written one by one after the role commits;
// a failed link is logged and counted but does not fail the save.
func (a *SQLAdapter) SaveRole(ctx context.Context, r *Role) (bool, error) {
	if err := ValidateRole(r); err != nil {
		return false, err
	}

	prevID := r.ID
	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if r.ID != 0 {
			result, err := tx.NewUpdate().
				Model(r).
				Set("name = ?", r.Name).
				Set("description = ?", r.Description).
				Set("updated_on = ?", a.now()).
				WherePK().
				Exec(ctx)
			return dbkit.WithErr(result, err, "UpdateRole").Err()
		}
		result, err := tx.NewInsert().
			Model(r).
			Value("added_on", a.dialect.Now).
			Value("updated_on", a.dialect.Now).
			Exec(ctx)
		return dbkit.WithErr(result, err, "InsertRole").Err()
	})
	if err != nil {
		r.ID = prevID
		if dbkit.IsDuplicate(err) {
			logError(a.logger, "SaveRole", "role name already exists", err)
		} else {
			logError(a.logger, "SaveRole", "failed to create/update role", err)
		}
		return false, nil
	}

	for _, p := range r.permissions {
		if ok, err := a.AddRolePermission(ctx, r, p); err != nil || !ok {
			a.txMonitor.recordLinkFailure()
			logDebug(a.logger, "role permission link not written",
				"role", r.Name, "permission", p.Name)
		}
	}
	return true, nil
}

// AddRolePermission links a permission to a role in storage. Linking an
// already linked pair succeeds without writing.
func (a *SQLAdapter) AddRolePermission(ctx context.Context, r *Role, p *Permission) (bool, error) {
	if !r.IsPersisted() || !p.IsPersisted() {
		return false, NewError(ErrValidation, "role or permission is in an invalid state").
			WithRole(roleName(r)).WithPermission(permissionName(p))
	}

	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		link := &rolePermission{RoleID: r.ID, PermissionID: p.ID}
		q := tx.NewInsert().
			Model(link).
			Value("added_on", a.dialect.Now)
		result, err := a.dialect.IgnoreDuplicate(q, "role_id").Exec(ctx)
		return dbkit.WithErr(result, err, "AddRolePermission").Err()
	})
	if err != nil {
		logError(a.logger, "AddRolePermission", "failed to add permission to role", err)
		return false, nil
	}
	return true, nil
}

// RemoveRolePermission unlinks a permission from a role in storage and from r.
func (a *SQLAdapter) RemoveRolePermission(ctx context.Context, r *Role, p *Permission) (bool, error) {
	if !r.IsPersisted() || !p.IsPersisted() {
		return false, NewError(ErrValidation, "role or permission is in an invalid state").
			WithRole(roleName(r)).WithPermission(permissionName(p))
	}

	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewDelete().
			Model((*rolePermission)(nil)).
			Where("role_id = ?", r.ID).
			Where("permission_id = ?", p.ID).
			Exec(ctx)
		return dbkit.WithErr(result, err, "RemoveRolePermission").Err()
	})
	if err != nil {
		logError(a.logger, "RemoveRolePermission", "failed to remove permission from role", err)
		return false, nil
	}
	r.RemovePermission(p)
	return true, nil
}

// DeleteRole removes the role with its permission and subject links.
// The role's ID is cleared on success.
func (a *SQLAdapter) DeleteRole(ctx context.Context, r *Role) (bool, error) {
	if !r.IsPersisted() {
		return false, NewError(ErrValidation, "role is in an invalid state").WithRole(roleName(r))
	}

	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewDelete().
			Model((*rolePermission)(nil)).
			Where("role_id = ?", r.ID).
			Exec(ctx)
		if err = dbkit.WithErr(result, err, "DeleteRolePermissions").Err(); err != nil {
			return err
		}
		result, err = tx.NewDelete().
			Model((*subjectRole)(nil)).
			Where("role_id = ?", r.ID).
			Exec(ctx)
		if err = dbkit.WithErr(result, err, "DeleteRoleSubjects").Err(); err != nil {
			return err
		}
		result, err = tx.NewDelete().Model(r).WherePK().Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteRole").Err()
	})
	if err != nil {
		logError(a.logger, "DeleteRole", "failed to delete role", err)
		return false, nil
	}
	r.ID = 0
	return true, nil
}

// ============================================================================
// ROLE QUERIES
// ============================================================================

// selectRoles runs the aggregate role query. Each returned role carries the IDs
// of its linked permissions but no Permission values.
func (a *SQLAdapter) selectRoles(ctx context.Context, op string, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]*Role, error) {
	var rows []roleRow
	q := a.db.NewSelect().
		Model(&rows).
		ColumnExpr("r.role_id, r.name, r.description, r.added_on, r.updated_on").
		ColumnExpr(a.dialect.GroupConcat("rp.permission_id") + " AS permission_ids").
		ColumnExpr("COUNT(rp.permission_id) AS permission_count").
		ColumnExpr("SUM(rp.permission_id) AS permission_sum").
		Join("LEFT JOIN auth_role_permissions AS rp ON rp.role_id = r.role_id").
		GroupExpr("r.role_id")
	if filter != nil {
		q = filter(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, dbkit.WithErr1(err, op).Err()
	}

	roles := make([]*Role, 0, len(rows))
	for i := range rows {
		role := rows[i].Role
		ids := parseIDList(rows[i].PermissionIDs.String)
		if !rows[i].verified(ids) {
			logDebug(a.logger, "aggregated permission IDs incomplete, reading links",
				"role", role.Name, "parsed", len(ids), "linked", rows[i].PermissionCount)
			var err error
			if ids, err = a.linkedPermissionIDs(ctx, role.ID); err != nil {
				return nil, dbkit.WithErr1(err, op).Err()
			}
		}
		role.SetPermissionIDs(ids...)
		roles = append(roles, &role)
	}
	return roles, nil
}

// linkedPermissionIDs reads the permission IDs linked to one role from the join table.
func (a *SQLAdapter) linkedPermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := a.db.NewSelect().
		Model((*rolePermission)(nil)).
		Column("permission_id").
		Where("role_id = ?", roleID).
		OrderExpr("permission_id ASC").
		Scan(ctx, &ids)
	return ids, err
}

// FetchAllRoles returns every role ordered by name. Returns an empty slice on error.
func (a *SQLAdapter) FetchAllRoles(ctx context.Context) []*Role {
	roles, err := a.selectRoles(ctx, "FetchAllRoles", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("r.name ASC")
	})
	if err != nil {
		logError(a.logger, "FetchAllRoles", "database error trying to fetch roles", err)
		return []*Role{}
	}
	return roles
}

// FetchRoleByName returns the role with the given name, or false if none exists.
func (a *SQLAdapter) FetchRoleByName(ctx context.Context, name string) (*Role, bool) {
	if name == "" {
		return nil, false
	}
	roles, err := a.selectRoles(ctx, "FetchRoleByName", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("r.name = ?", name)
	})
	if err != nil {
		logError(a.logger, "FetchRoleByName", "error trying to fetch role by name", err)
		return nil, false
	}
	if len(roles) == 0 {
		return nil, false
	}
	return roles[0], true
}

// FetchRoleByID returns the role with the given ID, or false if none exists.
func (a *SQLAdapter) FetchRoleByID(ctx context.Context, id int64) (*Role, bool) {
	if id == 0 {
		return nil, false
	}
	roles := a.FetchRolesByID(ctx, []int64{id})
	if len(roles) == 0 {
		return nil, false
	}
	return roles[0], true
}

// FetchRolesByID returns the roles whose IDs are in ids. Unknown IDs are skipped.
// Returns an empty slice on error.
func (a *SQLAdapter) FetchRolesByID(ctx context.Context, ids []int64) []*Role {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []*Role{}
	}
	roles, err := a.selectRoles(ctx, "FetchRolesByID", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("r.role_id IN (?)", bun.In(ids))
	})
	if err != nil {
		logError(a.logger, "FetchRolesByID", "error trying to fetch roles by ID", err)
		return []*Role{}
	}
	return roles
}

// FetchPermissionsByRole returns the permissions linked to r in storage.
func (a *SQLAdapter) FetchPermissionsByRole(ctx context.Context, r *Role) []*Permission {
	if !r.IsPersisted() {
		return []*Permission{}
	}
	var perms []*Permission
	err := a.db.NewSelect().
		Model(&perms).
		Join("JOIN auth_role_permissions AS rp ON rp.permission_id = p.permission_id").
		Where("rp.role_id = ?", r.ID).
		OrderExpr("p.name ASC").
		Scan(ctx)
	if err = dbkit.WithErr1(err, "FetchPermissionsByRole").Err(); err != nil {
		logError(a.logger, "FetchPermissionsByRole", "error trying to fetch role permissions", err)
		return []*Permission{}
	}
	if perms == nil {
		perms = []*Permission{}
	}
	return perms
}

func roleName(r *Role) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func permissionName(p *Permission) string {
	if p == nil {
		return ""
	}
	return p.Name
}
