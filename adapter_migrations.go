package rbackit

import (
	"context"
	"fmt"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// Migrations returns the schema migrations for the adapter's dialect.
// Every statement is idempotent, so running them again is harmless.
func (a *SQLAdapter) Migrations() []dbkit.Migration {
	switch a.dialect.Name {
	case "mysql":
		return mysqlMigrations()
	case "pg":
		return postgresMigrations()
	default:
		return sqliteMigrations()
	}
}

// Migrate creates the schema and returns the IDs of the migrations it ran.
//
// With WithDBKit, dbkit tracks applied migrations and only pending
// ones run. On other connections every migration runs in its own transaction.
func (a *SQLAdapter) Migrate(ctx context.Context) ([]string, error) {
	migrations := a.Migrations()

	if a.kit != nil {
		result, err := a.kit.Migrate(ctx, migrations)
		if err != nil {
			return nil, fmt.Errorf("rbackit: migrate: %w", err)
		}
		applied := make([]string, 0, len(result.Applied))
		for _, m := range result.Applied {
			applied = append(applied, m.ID)
		}
		return applied, nil
	}

	applied := make([]string, 0, len(migrations))
	for _, m := range migrations {
		err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.ExecContext(ctx, m.SQL)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("rbackit: migration %s: %w", m.ID, err)
		}
		logDebug(a.logger, "applied migration", "id", m.ID, "dialect", a.dialect.Name)
		applied = append(applied, m.ID)
	}
	return applied, nil
}

func sqliteMigrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "rbackit-001",
			Description: "Create auth_permission table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_permission (
                    permission_id INTEGER PRIMARY KEY AUTOINCREMENT,
                    name VARCHAR(32) NOT NULL UNIQUE,
                    description TEXT NOT NULL DEFAULT '',
                    added_on DATETIME,
                    updated_on DATETIME
                )`,
		},
		{
			ID:          "rbackit-002",
			Description: "Create auth_role table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_role (
                    role_id INTEGER PRIMARY KEY AUTOINCREMENT,
                    name VARCHAR(32) NOT NULL UNIQUE,
                    description TEXT NOT NULL DEFAULT '',
                    added_on DATETIME,
                    updated_on DATETIME
                )`,
		},
		{
			ID:          "rbackit-003",
			Description: "Create auth_role_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_role_permissions (
                    role_id INTEGER NOT NULL REFERENCES auth_role(role_id) ON DELETE CASCADE,
                    permission_id INTEGER NOT NULL REFERENCES auth_permission(permission_id) ON DELETE CASCADE,
                    added_on DATETIME,
                    PRIMARY KEY (role_id, permission_id)
                )`,
		},
		{
			ID:          "rbackit-004",
			Description: "Create auth_subject_role table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_subject_role (
                    subject_id INTEGER NOT NULL,
                    role_id INTEGER NOT NULL REFERENCES auth_role(role_id) ON DELETE CASCADE,
                    PRIMARY KEY (subject_id, role_id)
                )`,
		},
		{
			ID:          "rbackit-005",
			Description: "Index auth_role_permissions by permission",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_auth_role_permissions_permission ON auth_role_permissions (permission_id)`,
		},
	}
}

func postgresMigrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "rbackit-001",
			Description: "Create auth_permission table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_permission (
                    permission_id BIGSERIAL PRIMARY KEY,
                    name VARCHAR(32) NOT NULL UNIQUE,
                    description TEXT NOT NULL DEFAULT '',
                    added_on TIMESTAMPTZ,
                    updated_on TIMESTAMPTZ
                )`,
		},
		{
			ID:          "rbackit-002",
			Description: "Create auth_role table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_role (
                    role_id BIGSERIAL PRIMARY KEY,
                    name VARCHAR(32) NOT NULL UNIQUE,
                    description TEXT NOT NULL DEFAULT '',
                    added_on TIMESTAMPTZ,
                    updated_on TIMESTAMPTZ
                )`,
		},
		{
			ID:          "rbackit-003",
			Description: "Create auth_role_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_role_permissions (
                    role_id BIGINT NOT NULL REFERENCES auth_role(role_id) ON DELETE CASCADE,
                    permission_id BIGINT NOT NULL REFERENCES auth_permission(permission_id) ON DELETE CASCADE,
                    added_on TIMESTAMPTZ,
                    PRIMARY KEY (role_id, permission_id)
                )`,
		},
		{
			ID:          "rbackit-004",
			Description: "Create auth_subject_role table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_subject_role (
                    subject_id BIGINT NOT NULL,
                    role_id BIGINT NOT NULL REFERENCES auth_role(role_id) ON DELETE CASCADE,
                    PRIMARY KEY (subject_id, role_id)
                )`,
		},
		{
			ID:          "rbackit-005",
			Description: "Index auth_role_permissions by permission",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_auth_role_permissions_permission ON auth_role_permissions (permission_id)`,
		},
	}
}

// MySQL cannot create indexes conditionally, so secondary keys are declared inline.
func mysqlMigrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "rbackit-001",
			Description: "Create auth_permission table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_permission (
                    permission_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
                    name VARCHAR(32) NOT NULL UNIQUE,
                    description VARCHAR(255) NOT NULL DEFAULT '',
                    added_on DATETIME NULL,
                    updated_on DATETIME NULL
                ) ENGINE=InnoDB`,
		},
		{
			ID:          "rbackit-002",
			Description: "Create auth_role table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_role (
                    role_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
                    name VARCHAR(32) NOT NULL UNIQUE,
                    description VARCHAR(255) NOT NULL DEFAULT '',
                    added_on DATETIME NULL,
                    updated_on DATETIME NULL
                ) ENGINE=InnoDB`,
		},
		{
			ID:          "rbackit-003",
			Description: "Create auth_role_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_role_permissions (
                    role_id BIGINT NOT NULL,
                    permission_id BIGINT NOT NULL,
                    added_on DATETIME NULL,
                    PRIMARY KEY (role_id, permission_id),
                    KEY idx_auth_role_permissions_permission (permission_id),
                    FOREIGN KEY (role_id) REFERENCES auth_role (role_id) ON DELETE CASCADE,
                    FOREIGN KEY (permission_id) REFERENCES auth_permission (permission_id) ON DELETE CASCADE
                ) ENGINE=InnoDB`,
		},
		{
			ID:          "rbackit-004",
			Description: "Create auth_subject_role table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_subject_role (
                    subject_id BIGINT NOT NULL,
                    role_id BIGINT NOT NULL,
                    PRIMARY KEY (subject_id, role_id),
                    FOREIGN KEY (role_id) REFERENCES auth_role (role_id) ON DELETE CASCADE
                ) ENGINE=InnoDB`,
		},
	}
}
