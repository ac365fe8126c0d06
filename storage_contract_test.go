package rbackit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStorageContract exercises the Storage result contract. Every backend must pass it.
func runStorageContract(t *testing.T, newStorage func(t *testing.T) Storage) {
	ctx := context.Background()

	t.Run("SavePermission assigns IDs and fetch returns it", func(t *testing.T) {
		s := newStorage(t)
		read := NewPermission("read", "can read")
		write := NewPermission("write", "can write")

		ok, err := s.SavePermission(ctx, read)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.SavePermission(ctx, write)
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, int64(1), read.ID)
		assert.Equal(t, int64(2), write.ID)

		fetched, found := s.FetchPermissionByID(ctx, read.ID)
		require.True(t, found)
		assert.Equal(t, "read", fetched.Name)
		assert.Equal(t, "can read", fetched.Description)
	})

	t.Run("SavePermission with ID updates in place", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		p := h.permission("read", "can read")
		h.permission("write", "can write")

		p.Description = "can read everything"
		ok, err := s.SavePermission(ctx, p)
		require.NoError(t, err)
		require.True(t, ok)

		all := s.FetchAllPermissions(ctx)
		assert.Len(t, all, 2)
		fetched, found := s.FetchPermissionByID(ctx, p.ID)
		require.True(t, found)
		assert.Equal(t, "can read everything", fetched.Description)
	})

	t.Run("SavePermission rejects invalid names", func(t *testing.T) {
		s := newStorage(t)

		ok, err := s.SavePermission(ctx, NewPermission("", "empty"))
		assert.False(t, ok)
		assert.True(t, IsInvalidPermission(err))

		ok, err = s.SavePermission(ctx, NewPermission("this-permission-name-is-far-too-long", ""))
		assert.False(t, ok)
		assert.True(t, IsInvalidPermission(err))
	})

	t.Run("SavePermission duplicate name reports failure", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		h.permission("read", "can read")

		dup := NewPermission("read", "again")
		ok, err := s.SavePermission(ctx, dup)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, dup.ID, "failed insert must not leave an ID behind")
	})

	t.Run("FetchPermissionByID unknown", func(t *testing.T) {
		s := newStorage(t)
		p, found := s.FetchPermissionByID(ctx, 999)
		assert.False(t, found)
		assert.Nil(t, p)
	})

	t.Run("FetchPermissionsByID returns known IDs", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read, write, _ := h.editor()

		perms := s.FetchPermissionsByID(ctx, []int64{read.ID, write.ID, 999, read.ID})
		assert.ElementsMatch(t, []string{"read", "write"}, PermissionNames(perms))

		empty := s.FetchPermissionsByID(ctx, nil)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("FetchAllPermissions orders by name", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		h.permission("write", "")
		h.permission("delete", "")
		h.permission("read", "")

		var names []string
		for _, p := range s.FetchAllPermissions(ctx) {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"delete", "read", "write"}, names)
	})

	t.Run("DeletePermission", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read, _, editor := h.editor()
		id := read.ID

		ok, err := s.DeletePermission(ctx, read)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Zero(t, read.ID)

		_, found := s.FetchPermissionByID(ctx, id)
		assert.False(t, found)

		fetched, found := s.FetchRoleByID(ctx, editor.ID)
		require.True(t, found)
		assert.NotContains(t, fetched.PermissionIDs(), id)
	})

	t.Run("DeletePermission without ID is a validation error", func(t *testing.T) {
		s := newStorage(t)
		ok, err := s.DeletePermission(ctx, NewPermission("read", ""))
		assert.False(t, ok)
		assert.True(t, IsValidation(err))
	})

	t.Run("role round trip carries permission IDs", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read, write, editor := h.editor()
		assert.NotZero(t, editor.ID)

		fetched, found := s.FetchRoleByName(ctx, "editor")
		require.True(t, found)
		assert.Equal(t, editor.ID, fetched.ID)
		assert.Equal(t, "editor role", fetched.Description)
		assert.ElementsMatch(t, []int64{read.ID, write.ID}, fetched.PermissionIDs())
		assert.Empty(t, fetched.Permissions(), "storage does not hydrate")

		linked := s.FetchPermissionsByRole(ctx, fetched)
		assert.Equal(t, []string{"read", "write"}, PermissionNames(linked))
	})

	t.Run("role with no permissions", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		h.role("guest")

		fetched, found := s.FetchRoleByName(ctx, "guest")
		require.True(t, found)
		assert.Empty(t, fetched.PermissionIDs())
		assert.Empty(t, s.FetchPermissionsByRole(ctx, fetched))
	})

	t.Run("SaveRole updates", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		_, _, editor := h.editor()

		editor.Description = "changed"
		ok, err := s.SaveRole(ctx, editor)
		require.NoError(t, err)
		require.True(t, ok)

		roles := s.FetchAllRoles(ctx)
		require.Len(t, roles, 1)
		assert.Equal(t, "changed", roles[0].Description)
		assert.Len(t, roles[0].PermissionIDs(), 2, "re-saving must not duplicate links")
	})

	t.Run("FetchAllRoles and FetchRolesByID", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read, _, editor := h.editor()
		viewer := h.role("viewer", read)

		all := s.FetchAllRoles(ctx)
		require.Len(t, all, 2)
		assert.Equal(t, "editor", all[0].Name)
		assert.Equal(t, "viewer", all[1].Name)

		byID := s.FetchRolesByID(ctx, []int64{viewer.ID, 999})
		require.Len(t, byID, 1)
		assert.Equal(t, []int64{read.ID}, byID[0].PermissionIDs())

		single, found := s.FetchRoleByID(ctx, editor.ID)
		require.True(t, found)
		assert.Equal(t, "editor", single.Name)

		_, found = s.FetchRoleByID(ctx, 999)
		assert.False(t, found)
		_, found = s.FetchRoleByName(ctx, "missing")
		assert.False(t, found)
	})

	t.Run("AddRolePermission is idempotent", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read, _, editor := h.editor()

		ok, err := s.AddRolePermission(ctx, editor, read)
		require.NoError(t, err)
		assert.True(t, ok)

		fetched, _ := s.FetchRoleByID(ctx, editor.ID)
		assert.Len(t, fetched.PermissionIDs(), 2)
	})

	t.Run("AddRolePermission requires IDs", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read := h.permission("read", "")

		ok, err := s.AddRolePermission(ctx, &Role{Name: "unsaved"}, read)
		assert.False(t, ok)
		assert.True(t, IsValidation(err))

		role := h.role("viewer")
		ok, err = s.AddRolePermission(ctx, role, NewPermission("unsaved", ""))
		assert.False(t, ok)
		assert.True(t, IsValidation(err))
	})

	t.Run("RemoveRolePermission", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read, write, editor := h.editor()

		ok, err := s.RemoveRolePermission(ctx, editor, write)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, editor.HasPermission("write"))

		fetched, _ := s.FetchRoleByID(ctx, editor.ID)
		assert.Equal(t, []int64{read.ID}, fetched.PermissionIDs())
	})

	t.Run("DeleteRole clears ID and links", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		read, _, editor := h.editor()
		_, err := s.AddSubjectRole(ctx, editor, 42)
		require.NoError(t, err)

		ok, err := s.DeleteRole(ctx, editor)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Zero(t, editor.ID)

		_, found := s.FetchRoleByName(ctx, "editor")
		assert.False(t, found)
		assert.Empty(t, s.FetchSubjectRoles(ctx, NewSubject(42, nil)))

		_, found = s.FetchPermissionByID(ctx, read.ID)
		assert.True(t, found, "permissions survive their roles")
	})

	t.Run("DeleteRole without ID is a validation error", func(t *testing.T) {
		s := newStorage(t)
		ok, err := s.DeleteRole(ctx, &Role{Name: "unsaved"})
		assert.False(t, ok)
		assert.True(t, IsValidation(err))
	})

	t.Run("subject roles", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		_, _, editor := h.editor()
		h.role("viewer")

		ok, err := s.AddSubjectRole(ctx, editor, 42)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.AddSubjectRole(ctx, editor, 42)
		require.NoError(t, err)
		assert.True(t, ok, "duplicate subject link is ignored")

		roles := s.FetchSubjectRoles(ctx, NewSubject(42, nil))
		require.Len(t, roles, 1)
		assert.Equal(t, "editor", roles[0].Name)
		assert.Len(t, roles[0].PermissionIDs(), 2)

		assert.Empty(t, s.FetchSubjectRoles(ctx, NewSubject(7, nil)))
		assert.Empty(t, s.FetchSubjectRoles(ctx, nil))

		ok, err = s.RemoveSubjectRole(ctx, editor, 42)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Empty(t, s.FetchSubjectRoles(ctx, NewSubject(42, nil)))
	})

	t.Run("AddSubjectRole requires subject and role IDs", func(t *testing.T) {
		s := newStorage(t)
		h := newTestDataHelper(t, s)
		role := h.role("viewer")

		ok, err := s.AddSubjectRole(ctx, role, 0)
		assert.False(t, ok)
		assert.True(t, IsValidation(err))

		ok, err = s.AddSubjectRole(ctx, &Role{Name: "unsaved"}, 42)
		assert.False(t, ok)
		assert.True(t, IsValidation(err))

		ok, err = s.RemoveSubjectRole(ctx, role, 0)
		assert.False(t, ok)
		assert.True(t, IsValidation(err))
	})
}

func TestMemoryStorageContract(t *testing.T) {
	runStorageContract(t, func(t *testing.T) Storage {
		return NewMemoryStorage(nil)
	})
}

func TestSQLiteAdapterContract(t *testing.T) {
	runStorageContract(t, func(t *testing.T) Storage {
		return newTestAdapter(t)
	})
}

func TestCachedStorageContract(t *testing.T) {
	runStorageContract(t, func(t *testing.T) Storage {
		return NewCachedStorage(newTestAdapter(t), 0, 0)
	})
}
