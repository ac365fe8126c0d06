package rbackit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// Health performs a health check of the database connection.
// A connection attached with WithDBKit reports its own detailed status; other connections
// are checked with a ping.
func (a *SQLAdapter) Health(ctx context.Context) dbkit.HealthStatus {
	if a.kit != nil {
		return a.kit.Health(ctx)
	}

	if err := a.Ping(ctx); err != nil {
		logError(a.logger, "Health", "database health check failed", err)
		return dbkit.HealthStatus{Healthy: false, Error: err.Error()}
	}
	return dbkit.HealthStatus{Healthy: true}
}

// IsHealthy reports whether the database is reachable.
func (a *SQLAdapter) IsHealthy(ctx context.Context) bool {
	if a.kit != nil {
		return a.kit.IsHealthy(ctx)
	}
	return a.Ping(ctx) == nil
}

// Ping performs a basic connectivity test with a trivial query.
func (a *SQLAdapter) Ping(ctx context.Context) error {
	var result int
	return a.db.NewSelect().ColumnExpr("1").Scan(ctx, &result)
}

// GetPoolStats returns connection pool statistics for monitoring.
// Returns zero values when the connection is a transaction or otherwise has no pool.
func (a *SQLAdapter) GetPoolStats() dbkit.PoolStats {
	if a.kit != nil {
		return dbkit.PoolStatsFromSQL(a.kit.Stats())
	}
	if db, ok := a.db.(*bun.DB); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}
