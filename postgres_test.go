package rbackit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPostgresAdapter returns an adapter over TEST_DATABASE_URL with an empty,
// migrated schema.
func newPostgresAdapter(t *testing.T) *SQLAdapter {
	t.Helper()
	ctx := context.Background()
	kit := requireDatabase(t)

	adapter, err := NewSQLAdapter(kit.Bun(), WithDBKit(kit))
	require.NoError(t, err)
	require.Equal(t, "pg", adapter.Dialect().Name)

	_, err = adapter.Migrate(ctx)
	require.NoError(t, err)

	_, err = kit.Bun().ExecContext(ctx,
		"TRUNCATE auth_subject_role, auth_role_permissions, auth_role, auth_permission RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return adapter
}

func TestPostgresAdapterContract(t *testing.T) {
	requireDatabase(t)
	runStorageContract(t, func(t *testing.T) Storage {
		return newPostgresAdapter(t)
	})
}

func TestPostgresHealth(t *testing.T) {
	ctx := context.Background()
	adapter := newPostgresAdapter(t)

	status := adapter.Health(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, adapter.IsHealthy(ctx))
	assert.Positive(t, adapter.GetPoolStats().MaxOpenConnections)
}

func TestPostgresEditorScenario(t *testing.T) {
	ctx := context.Background()
	manager := NewRoleManager(newPostgresAdapter(t))
	require.NoError(t, manager.Apply(ctx, newContentRegistry()))

	editor, found := manager.FetchRoleByName(ctx, "editor")
	require.True(t, found)

	subject := NewSubject(42, nil)
	ok, err := manager.AddSubjectToRole(ctx, editor, subject)
	require.NoError(t, err)
	require.True(t, ok)

	roles := manager.FetchSubjectRoles(ctx, NewSubject(42, nil))
	assert.True(t, roles.HasPermission("articles.write"))
	assert.False(t, roles.HasPermission("articles.publish"))
}
