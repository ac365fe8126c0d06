package rbackit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// FetchSubjectRoles returns the roles linked to the subject, each carrying the IDs
// of its permissions. Returns an empty slice for a nil subject, a zero ID or on error.
func (a *SQLAdapter) FetchSubjectRoles(ctx context.Context, s Subject) []*Role {
	if s == nil || s.ID() == 0 {
		return []*Role{}
	}

	var roleIDs []int64
	err := a.db.NewSelect().
		Model((*subjectRole)(nil)).
		Column("role_id").
		Where("subject_id = ?", s.ID()).
		Scan(ctx, &roleIDs)
	if err = dbkit.WithErr1(err, "FetchSubjectRoles").Err(); err != nil {
		logError(a.logger, "FetchSubjectRoles", "error trying to fetch subject roles", err)
		return []*Role{}
	}
	return a.FetchRolesByID(ctx, roleIDs)
}

// AddSubjectRole links a role to a subject. Linking twice succeeds without writing.
func (a *SQLAdapter) AddSubjectRole(ctx context.Context, r *Role, subjectID int64) (bool, error) {
	if subjectID == 0 || !r.IsPersisted() {
		return false, NewError(ErrValidation, "role or subject is in an invalid state").
			WithRole(roleName(r)).WithSubject(subjectID)
	}

	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		link := &subjectRole{SubjectID: subjectID, RoleID: r.ID}
		result, err := a.dialect.IgnoreDuplicate(tx.NewInsert().Model(link), "subject_id").Exec(ctx)
		return dbkit.WithErr(result, err, "AddSubjectRole").Err()
	})
	if err != nil {
		logError(a.logger, "AddSubjectRole", "failed to add role to subject", err)
		return false, nil
	}
	return true, nil
}

// RemoveSubjectRole unlinks a role from a subject.
func (a *SQLAdapter) RemoveSubjectRole(ctx context.Context, r *Role, subjectID int64) (bool, error) {
	if subjectID == 0 || !r.IsPersisted() {
		return false, NewError(ErrValidation, "role or subject is in an invalid state").
			WithRole(roleName(r)).WithSubject(subjectID)
	}

	err := a.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewDelete().
			Model((*subjectRole)(nil)).
			Where("subject_id = ?", subjectID).
			Where("role_id = ?", r.ID).
			Exec(ctx)
		return dbkit.WithErr(result, err, "RemoveSubjectRole").Err()
	})
	if err != nil {
		logError(a.logger, "RemoveSubjectRole", "failed to remove role from subject", err)
		return false, nil
	}
	return true, nil
}
