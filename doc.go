// Package rbackit provides role-based access control backed by a relational database.
//
// Subjects (users, services) hold roles; roles bundle permissions; a permission is a
// named capability. rbackit persists permissions, roles and their links to MySQL,
// PostgreSQL or SQLite and answers "does subject X have permission Y".
//
// # Core Concepts
//
// Permission: an atomic, named capability such as "read" or "invoice.approve".
// Names are unique and at most 32 characters.
//
// Role: a named bundle of permissions. A permission must be saved before it can be
// attached to a role.
//
// RoleSet: the roles currently held by a subject. It is loaded fresh from storage
// and answers permission checks over the union of its roles.
//
// Subject: anything with a non-zero int64 ID. rbackit stores only which role IDs are
// linked to a subject ID; subject identity belongs to the application.
//
// # Key Features
//
//   - One SQL adapter for every backend, with dialect differences in a Dialect value
//   - Batched permission hydration: one aggregate role query plus one permission query
//   - Transactional writes with duration and failure metrics
//   - Optional TTL cache decorator for permission lookups
//   - Declarative registry applied idempotently at startup
//   - Prometheus collector for storage, pool and cache statistics
//
// # Basic Usage
//
//	// 1. Open the database (or build a *bun.DB yourself and call NewSQLAdapter)
//	db, err := rbackit.Open(ctx, rbackit.Config{
//	    Driver:      rbackit.DriverSQLite,
//	    DSN:         "file:rbac.db?_foreign_keys=1",
//	    AutoMigrate: true,
//	})
//	defer db.Close()
//	manager := db.Manager()
//
//	// 2. Define permissions and roles
//	read := rbackit.NewPermission("read", "can read")
//	write := rbackit.NewPermission("write", "can write")
//	manager.SavePermission(ctx, read)
//	manager.SavePermission(ctx, write)
//
//	editor, err := rbackit.NewRole("editor", "edits content", read, write)
//	manager.SaveRole(ctx, editor)
//
//	// 3. Assign roles to subjects
//	user := rbackit.NewSubject(42, nil)
//	manager.AddSubjectToRole(ctx, editor, user)
//
//	// 4. Check permissions
//	manager.LoadSubjectRoles(ctx, user)
//	if user.HasPermission("write") {
//	    // allowed
//	}
//
// # Error Handling
//
// Two kinds of failure are kept apart. Invalid input, such as deleting a permission
// that was never saved or linking a role without an ID, is returned immediately as an
// error wrapping ErrValidation, ErrInvalidPermission or ErrInvalidRole, before any
// database call. Database failures are rolled back, logged through the configured
// Logger and reported as false, nil or an empty slice. Callers must check boolean
// results rather than rely on errors for storage faults.
//
//	ok, err := manager.DeletePermission(ctx, perm)
//	if err != nil {
//	    // programmer error: perm was never saved
//	}
//	if !ok {
//	    // storage failure, already logged
//	}
//
// Saving a role writes the role row first and then links each attached permission
// separately. A failed link is logged and counted in TransactionMetrics.FailedLinks
// but the save still reports success.
//
// # Declarative Setup
//
//	registry := rbackit.NewRegistry()
//	registry.
//	    Permission("read", "can read").
//	    Permission("write", "can write").
//	    Role("viewer", "read only").Grants("read").
//	    Role("editor", "edits content").Grants("read", "write")
//
//	if err := manager.Apply(ctx, registry); err != nil {
//	    log.Fatal(err)
//	}
//
// Applying the same registry again changes nothing.
//
// # Request Context
//
//	ctx = rbackit.WithSubject(ctx, user)
//	if err := rbackit.RequirePermission(ctx, "write"); err != nil {
//	    // errors.Is(err, rbackit.ErrInsufficientPermission)
//	}
package rbackit
