package rbackit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/fernandezvara/dbkit"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (l *recordingLogger) Debug(msg string, args ...any) {
	l.record("debug", msg, args)
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.record("error", msg, args)
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

// errorOps returns the ops of all error-level entries.
func (l *recordingLogger) errorOps() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ops []string
	for _, e := range l.entries {
		if e.level != "error" {
			continue
		}
		for i := 0; i+1 < len(e.args); i += 2 {
			if e.args[i] == "op" {
				ops = append(ops, fmt.Sprint(e.args[i+1]))
			}
		}
	}
	return ops
}

// newSQLiteDB opens a private in-memory SQLite database.
func newSQLiteDB(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:?_foreign_keys=1")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	SQLitePoolConfig().Apply(db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestAdapter returns a migrated SQLite adapter.
func newTestAdapter(t testing.TB, opts ...AdapterOption) *SQLAdapter {
	t.Helper()

	adapter, err := NewSQLAdapter(newSQLiteDB(t), opts...)
	require.NoError(t, err)
	_, err = adapter.Migrate(context.Background())
	require.NoError(t, err)
	return adapter
}

// getTestDatabaseURL returns the PostgreSQL URL for integration tests, or "".
func getTestDatabaseURL() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// requireDatabase skips the test unless TEST_DATABASE_URL points at a reachable
// PostgreSQL server, and returns the connection.
func requireDatabase(t *testing.T) *dbkit.DBKit {
	t.Helper()

	dbURL := getTestDatabaseURL()
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping PostgreSQL test")
	}
	kit, err := dbkit.New(dbkit.Config{URL: dbURL})
	if err != nil {
		t.Skipf("database not available: %v", err)
	}
	if err := kit.PingContext(context.Background()); err != nil {
		_ = kit.Close()
		t.Skipf("database not available: %v", err)
	}
	t.Cleanup(func() { _ = kit.Close() })
	return kit
}

// testDataHelper seeds the permissions and roles used across storage tests.
type testDataHelper struct {
	t       *testing.T
	ctx     context.Context
	storage Storage
}

func newTestDataHelper(t *testing.T, storage Storage) *testDataHelper {
	return &testDataHelper{t: t, ctx: context.Background(), storage: storage}
}

// permission saves and returns a new permission.
func (h *testDataHelper) permission(name, description string) *Permission {
	h.t.Helper()
	p := NewPermission(name, description)
	ok, err := h.storage.SavePermission(h.ctx, p)
	require.NoError(h.t, err)
	require.True(h.t, ok, "save permission %q", name)
	return p
}

// role saves and returns a new role holding perms.
func (h *testDataHelper) role(name string, perms ...*Permission) *Role {
	h.t.Helper()
	r, err := NewRole(name, name+" role", perms...)
	require.NoError(h.t, err)
	ok, err := h.storage.SaveRole(h.ctx, r)
	require.NoError(h.t, err)
	require.True(h.t, ok, "save role %q", name)
	return r
}

// editor seeds read, write and an editor role holding both.
func (h *testDataHelper) editor() (read, write *Permission, editor *Role) {
	read = h.permission("read", "can read")
	write = h.permission("write", "can write")
	editor = h.role("editor", read, write)
	return read, write, editor
}

// countingStorage counts calls that matter for hydration and caching.
type countingStorage struct {
	Storage

	mu                   sync.Mutex
	fetchPermissionsByID int
	fetchPermissionByID  int
}

func (c *countingStorage) FetchPermissionsByID(ctx context.Context, ids []int64) []*Permission {
	c.mu.Lock()
	c.fetchPermissionsByID++
	c.mu.Unlock()
	return c.Storage.FetchPermissionsByID(ctx, ids)
}

func (c *countingStorage) FetchPermissionByID(ctx context.Context, id int64) (*Permission, bool) {
	c.mu.Lock()
	c.fetchPermissionByID++
	c.mu.Unlock()
	return c.Storage.FetchPermissionByID(ctx, id)
}

func (c *countingStorage) batchCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchPermissionsByID
}

func (c *countingStorage) singleCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchPermissionByID
}
