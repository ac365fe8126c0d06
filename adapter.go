package rbackit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// SQLAdapter implements Storage on top of a relational database through bun.
// It works with MySQL, PostgreSQL and SQLite; dialect differences live in Dialect.
//
// The adapter receives an open connection and never closes it. Each write runs in
// its own transaction; storage errors are rolled back, logged and reported as
// false or empty results.
//
// Role rows are fetched with one aggregate query that returns the linked permission
// IDs alongside each role, so RoleManager can hydrate many roles with a single
// permission query.
type SQLAdapter struct {
	db        bun.IDB
	kit       *dbkit.DBKit
	dialect   Dialect
	logger    Logger
	txMonitor *transactionMonitor
}

// AdapterOption configures the SQLAdapter.
type AdapterOption func(*SQLAdapter)

// WithLogger sets the logger used on failure paths.
func WithLogger(l Logger) AdapterOption {
	return func(a *SQLAdapter) {
		a.logger = l
	}
}

// WithDialect overrides the dialect detected from the connection.
func WithDialect(d Dialect) AdapterOption {
	return func(a *SQLAdapter) {
		a.dialect = d
	}
}

// WithDBKit attaches the dbkit connection db was obtained from, enabling
// tracked migrations and dbkit's detailed health status.
func WithDBKit(kit *dbkit.DBKit) AdapterOption {
	return func(a *SQLAdapter) {
		a.kit = kit
	}
}

// NewSQLAdapter creates an adapter over db. The dialect is detected from
// db.Dialect() unless WithDialect is given.
//
// Example:
//
//	sqldb, _ := sql.Open("sqlite3", "rbac.db?_foreign_keys=1")
//	db := bun.NewDB(sqldb, sqlitedialect.New())
//	adapter, err := rbackit.NewSQLAdapter(db, rbackit.WithLogger(slog.Default()))
//
// For PostgreSQL through dbkit:
//
//	kit, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	adapter, err := rbackit.NewSQLAdapter(kit.Bun(), rbackit.WithDBKit(kit))
func NewSQLAdapter(db bun.IDB, opts ...AdapterOption) (*SQLAdapter, error) {
	a := &SQLAdapter{
		db:        db,
		txMonitor: newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.dialect.Name == "" {
		d, err := DialectFor(db)
		if err != nil {
			return nil, err
		}
		a.dialect = d
	}
	if a.dialect.GroupConcat == nil || a.dialect.IgnoreDuplicate == nil {
		return nil, fmt.Errorf("rbackit: dialect %q is missing query builders", a.dialect.Name)
	}
	return a, nil
}

// Dialect returns the dialect in use.
func (a *SQLAdapter) Dialect() Dialect {
	return a.dialect
}

// DB returns the underlying connection.
func (a *SQLAdapter) DB() bun.IDB {
	return a.db
}

func (a *SQLAdapter) now() bun.Safe {
	return bun.Safe(a.dialect.Now)
}

// parseIDList parses the comma separated output of a group-concat aggregate.
// Malformed entries are skipped.
func parseIDList(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// uniqueIDs drops zero and repeated IDs, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
