package rbackit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// PERMISSION OPERATIONS
// ============================================================================

// SavePermission inserts a new permission or updates an existing one.
// On insert the generated ID is written back to p. On failure p is left unchanged.
func (a *SQLAdapter) SavePermission(ctx context.Context, p *Permission) (bool, error) {
	if err := ValidatePermission(p); err != nil {
		return false, err
	}

	prevID := p.ID
	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if p.ID != 0 {
			result, err := tx.NewUpdate().
				Model(p).
				Set("name = ?", p.Name).
				Set("description = ?", p.Description).
				Set("updated_on = ?", a.now()).
				WherePK().
				Exec(ctx)
			return dbkit.WithErr(result, err, "UpdatePermission").Err()
		}
		result, err := tx.NewInsert().
			Model(p).
			Value("added_on", a.dialect.Now).
			Value("updated_on", a.dialect.Now).
			Exec(ctx)
		return dbkit.WithErr(result, err, "InsertPermission").Err()
	})
	if err != nil {
		p.ID = prevID
		if dbkit.IsDuplicate(err) {
			logError(a.logger, "SavePermission", "permission name already exists", err)
		} else {
			logError(a.logger, "SavePermission", "failed to create/update permission", err)
		}
		return false, nil
	}
	return true, nil
}

// FetchPermissionByID returns the permission with the given ID, or false if it
// does not exist or the query failed.
func (a *SQLAdapter) FetchPermissionByID(ctx context.Context, id int64) (*Permission, bool) {
	if id == 0 {
		return nil, false
	}
	p := &Permission{ID: id}
	err := dbkit.WithErr1(a.db.NewSelect().Model(p).WherePK().Limit(1).Scan(ctx), "FetchPermissionByID").Err()
	if err != nil {
		if !dbkit.IsNotFound(err) {
			logError(a.logger, "FetchPermissionByID", "error trying to fetch permission by ID", err)
		}
		return nil, false
	}
	return p, true
}

// FetchPermissionsByID returns the permissions whose IDs are in ids, in database order.
// Unknown IDs are skipped. Returns an empty slice on error.
func (a *SQLAdapter) FetchPermissionsByID(ctx context.Context, ids []int64) []*Permission {
	ids = uniqueIDs(ids)
	perms := make([]*Permission, 0, len(ids))
	if len(ids) == 0 {
		return perms
	}
	err := dbkit.WithErr1(a.db.NewSelect().
		Model(&perms).
		Where("p.permission_id IN (?)", bun.In(ids)).
		Scan(ctx), "FetchPermissionsByID").Err()
	if err != nil {
		logError(a.logger, "FetchPermissionsByID", "error trying to fetch permissions by ID", err)
		return []*Permission{}
	}
	return perms
}

// FetchAllPermissions returns every permission ordered by name.
// Returns an empty slice on error.
func (a *SQLAdapter) FetchAllPermissions(ctx context.Context) []*Permission {
	var perms []*Permission
	err := dbkit.WithErr1(a.db.NewSelect().
		Model(&perms).
		OrderExpr("p.name ASC").
		Scan(ctx), "FetchAllPermissions").Err()
	if err != nil {
		logError(a.logger, "FetchAllPermissions", "database error trying to fetch permissions", err)
		return []*Permission{}
	}
	if perms == nil {
		perms = []*Permission{}
	}
	return perms
}

// DeletePermission removes the permission and its role links.
// The permission's ID is cleared on success.
func (a *SQLAdapter) DeletePermission(ctx context.Context, p *Permission) (bool, error) {
	if !p.IsPersisted() {
		return false, NewError(ErrValidation, "permission is in an invalid state")
	}

	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		// Explicit so backends without cascading foreign keys stay consistent.
		result, err := tx.NewDelete().
			Model((*rolePermission)(nil)).
			Where("permission_id = ?", p.ID).
			Exec(ctx)
		if err = dbkit.WithErr(result, err, "DeletePermissionLinks").Err(); err != nil {
			return err
		}
		result, err = tx.NewDelete().Model(p).WherePK().Exec(ctx)
		return dbkit.WithErr(result, err, "DeletePermission").Err()
	})
	if err != nil {
		logError(a.logger, "DeletePermission", "failed to delete permission", err)
		return false, nil
	}
	p.ID = 0
	return true, nil
}
