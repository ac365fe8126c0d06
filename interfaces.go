package rbackit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Storage is the persistence contract for permissions, roles and their relations.
// Any backend may implement it (SQL dialect, document store, in-memory) as long as it
// honors the same result contract:
//
//   - Validation problems (unsaved entities, zero subject IDs, bad names) are returned
//     as errors wrapping ErrValidation, ErrInvalidPermission or ErrInvalidRole, before any I/O.
//   - Storage failures are logged and reported as false, nil or an empty slice. They are
//     never returned as errors.
//   - Role fetches return roles without permissions attached but with
//     Role.SetPermissionIDs populated, so callers can hydrate in one batch.
type Storage interface {
	SavePermission(ctx context.Context, p *Permission) (bool, error)
	FetchPermissionByID(ctx context.Context, id int64) (*Permission, bool)
	FetchPermissionsByID(ctx context.Context, ids []int64) []*Permission
	FetchAllPermissions(ctx context.Context) []*Permission
	DeletePermission(ctx context.Context, p *Permission) (bool, error)

	SaveRole(ctx context.Context, r *Role) (bool, error)
	AddRolePermission(ctx context.Context, r *Role, p *Permission) (bool, error)
	RemoveRolePermission(ctx context.Context, r *Role, p *Permission) (bool, error)
	DeleteRole(ctx context.Context, r *Role) (bool, error)
	FetchAllRoles(ctx context.Context) []*Role
	FetchRoleByName(ctx context.Context, name string) (*Role, bool)
	FetchRoleByID(ctx context.Context, id int64) (*Role, bool)
	FetchRolesByID(ctx context.Context, ids []int64) []*Role
	FetchPermissionsByRole(ctx context.Context, r *Role) []*Permission

	FetchSubjectRoles(ctx context.Context, s Subject) []*Role
	AddSubjectRole(ctx context.Context, r *Role, subjectID int64) (bool, error)
	RemoveSubjectRole(ctx context.Context, r *Role, subjectID int64) (bool, error)
}

// MigrationManager is implemented by storages that own a relational schema.
type MigrationManager interface {
	Migrations() []dbkit.Migration
	Migrate(ctx context.Context) ([]string, error)
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}

// CacheStats is implemented by caching storages.
type CacheStats interface {
	Stats() CacheMetrics
	TTL() time.Duration
}

var (
	_ Storage            = (*SQLAdapter)(nil)
	_ Storage            = (*MemoryStorage)(nil)
	_ Storage            = (*CachedStorage)(nil)
	_ MigrationManager   = (*SQLAdapter)(nil)
	_ HealthMonitor      = (*SQLAdapter)(nil)
	_ TransactionMonitor = (*SQLAdapter)(nil)
	_ CacheStats         = (*CachedStorage)(nil)
	_ Subject            = (*BasicSubject)(nil)
)
