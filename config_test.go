package rbackit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("RBAC_DSN", "file:rbac.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "file:rbac.db", cfg.DSN)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, DefaultPoolConfig(), cfg.Pool)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("RBAC_DRIVER", "postgres")
	t.Setenv("RBAC_DSN", "postgres://localhost/rbac")
	t.Setenv("RBAC_CACHE_TTL", "30s")
	t.Setenv("RBAC_AUTO_MIGRATE", "true")
	t.Setenv("RBAC_POOL_MAX_OPEN", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 50, cfg.Pool.MaxOpenConnections)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing DSN", func(t *testing.T) {
		t.Setenv("RBAC_DSN", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("RBAC_DSN", "x")
		t.Setenv("RBAC_DRIVER", "oracle")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("RBAC_DSN", "x")
		t.Setenv("RBAC_CACHE_TTL", "soon")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{
		Driver:      DriverSQLite,
		DSN:         ":memory:?_foreign_keys=1",
		CacheTTL:    time.Minute,
		CacheSize:   16,
		AutoMigrate: true,
		Pool:        DefaultPoolConfig(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NotNil(t, db.Cache)
	assert.Same(t, db.Cache, db.Storage())
	assert.Equal(t, 1, db.Adapter.GetPoolStats().MaxOpenConnections, "sqlite ignores the configured pool")

	manager := db.Manager()
	require.NoError(t, manager.Apply(ctx, newContentRegistry()))
	editor, found := manager.FetchRoleByName(ctx, "editor")
	require.True(t, found)
	assert.True(t, editor.HasPermission("articles.write"))

	assert.Positive(t, db.Cache.Stats().Misses)
	assert.NotNil(t, db.Collector())
}

func TestOpenWithoutCache(t *testing.T) {
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Nil(t, db.Cache)
	assert.Same(t, db.Adapter, db.Storage())
	assert.Empty(t, db.Adapter.FetchAllPermissions(context.Background()), "schema is absent without AutoMigrate")
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestOpenMySQLBadDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: DriverMySQL, DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		dsn      string
		expected string
	}{
		{":memory:", ":memory:?_foreign_keys=1"},
		{"file:rbac.db?cache=shared", "file:rbac.db?cache=shared&_foreign_keys=1"},
		{":memory:?_foreign_keys=1", ":memory:?_foreign_keys=1"},
		{"rbac.db?_foreign_keys=0", "rbac.db?_foreign_keys=0"},
		{"rbac.db?_fk=true", "rbac.db?_fk=true"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqliteDSN(tt.dsn))
		})
	}
}

func TestOpenSQLiteEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:", AutoMigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var enabled int
	require.NoError(t, db.DB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)

	role := &Role{Name: "editor"}
	ok, err := db.Adapter.SaveRole(ctx, role)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.Adapter.AddRolePermission(ctx, role, &Permission{ID: 404, Name: "gone"})
	require.NoError(t, err)
	assert.False(t, ok, "links to missing permissions are rejected")
}

func TestMySQLConfig(t *testing.T) {
	mcfg, err := mysqlConfig("rbac:secret@tcp(localhost:3306)/rbac")
	require.NoError(t, err)
	assert.True(t, mcfg.ParseTime)
	assert.Equal(t, MySQLGroupConcatMaxLen, mcfg.Params["group_concat_max_len"])

	mcfg, err = mysqlConfig("rbac:secret@tcp(localhost:3306)/rbac?group_concat_max_len=4096&parseTime=false")
	require.NoError(t, err)
	assert.True(t, mcfg.ParseTime)
	assert.Equal(t, "4096", mcfg.Params["group_concat_max_len"], "an explicit limit is kept")

	_, err = mysqlConfig("not a dsn")
	assert.Error(t, err)
}
