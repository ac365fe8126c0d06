package rbackit

import (
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Dialect carries the SQL fragments that differ between database backends.
// A single SQLAdapter serves every backend; only this value changes.
type Dialect struct {
	// Name identifies the backend ("mysql", "pg", "sqlite").
	Name string

	// Now is the SQL expression producing the current timestamp.
	Now string

	// GroupConcat wraps a column expression in the backend's string aggregate,
	// producing a comma separated list per group.
	GroupConcat func(expr string) string

	// IgnoreDuplicate makes an insert succeed without writing when the row's
	// key already exists. Other constraint violations must still fail. key names
	// a column of the inserted table.
	IgnoreDuplicate func(q *bun.InsertQuery, key string) *bun.InsertQuery
}

func groupConcat(expr string) string {
	return "GROUP_CONCAT(" + expr + ")"
}

func stringAgg(expr string) string {
	return "string_agg(CAST(" + expr + " AS TEXT), ',')"
}

// onConflictIgnore renders ON CONFLICT DO NOTHING, which only skips unique
// conflicts on PostgreSQL and SQLite.
func onConflictIgnore(q *bun.InsertQuery, _ string) *bun.InsertQuery {
	return q.Ignore()
}

// onDuplicateKeyNoop is used instead of INSERT IGNORE, which MySQL applies to
// foreign key violations too.
func onDuplicateKeyNoop(q *bun.InsertQuery, key string) *bun.InsertQuery {
	return q.On("DUPLICATE KEY UPDATE ? = ?", bun.Ident(key), bun.Ident(key))
}

// MySQLDialect targets MySQL and MariaDB.
func MySQLDialect() Dialect {
	return Dialect{Name: "mysql", Now: "NOW()", GroupConcat: groupConcat, IgnoreDuplicate: onDuplicateKeyNoop}
}

// PostgresDialect targets PostgreSQL.
func PostgresDialect() Dialect {
	return Dialect{Name: "pg", Now: "NOW()", GroupConcat: stringAgg, IgnoreDuplicate: onConflictIgnore}
}

// SQLiteDialect targets SQLite 3.
func SQLiteDialect() Dialect {
	return Dialect{Name: "sqlite", Now: "datetime(current_timestamp)", GroupConcat: groupConcat, IgnoreDuplicate: onConflictIgnore}
}

// DialectFor selects the Dialect matching the bun dialect of db.
func DialectFor(db bun.IDB) (Dialect, error) {
	switch name := db.Dialect().Name(); name {
	case dialect.MySQL:
		return MySQLDialect(), nil
	case dialect.PG:
		return PostgresDialect(), nil
	case dialect.SQLite:
		return SQLiteDialect(), nil
	default:
		return Dialect{}, fmt.Errorf("rbackit: unsupported dialect %q", name.String())
	}
}
