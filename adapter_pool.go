package rbackit

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// PoolConfig holds connection pool settings. It is embedded in Config and
// loaded from RBAC_POOL_* environment variables.
type PoolConfig struct {
	MaxOpenConnections    int           `envconfig:"MAX_OPEN" default:"25"`
	MaxIdleConnections    int           `envconfig:"MAX_IDLE" default:"5"`
	ConnectionMaxLifetime time.Duration `envconfig:"MAX_LIFETIME" default:"30m"`
	ConnectionMaxIdleTime time.Duration `envconfig:"MAX_IDLE_TIME" default:"5m"`
}

// DefaultPoolConfig returns pool settings suited to most deployments.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    25,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// SQLitePoolConfig returns pool settings for SQLite, which serializes writers.
// A single connection also keeps ":memory:" databases alive across calls.
func SQLitePoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections: 1,
		MaxIdleConnections: 1,
	}
}

// Apply sets the pool settings on db.
func (c PoolConfig) Apply(db *bun.DB) {
	db.SetMaxOpenConns(c.MaxOpenConnections)
	db.SetMaxIdleConns(c.MaxIdleConnections)
	db.SetConnMaxLifetime(c.ConnectionMaxLifetime)
	db.SetConnMaxIdleTime(c.ConnectionMaxIdleTime)
}

// ConfigureConnectionPool updates the connection pool settings of the adapter's database.
func (a *SQLAdapter) ConfigureConnectionPool(config PoolConfig) error {
	db, ok := a.db.(*bun.DB)
	if !ok {
		return fmt.Errorf("rbackit: connection pool configuration requires a *bun.DB, got %T", a.db)
	}
	config.Apply(db)

	logDebug(a.logger, "connection pool configured",
		"max_open", config.MaxOpenConnections,
		"max_idle", config.MaxIdleConnections,
		"max_lifetime", config.ConnectionMaxLifetime,
		"max_idle_time", config.ConnectionMaxIdleTime)
	return nil
}

// ResetConnectionPool resets the connection pool to default settings.
func (a *SQLAdapter) ResetConnectionPool() error {
	if a.dialect.Name == "sqlite" {
		return a.ConfigureConnectionPool(SQLitePoolConfig())
	}
	return a.ConfigureConnectionPool(DefaultPoolConfig())
}
