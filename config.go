package rbackit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Supported values of Config.Driver.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig.
const EnvPrefix = "RBAC"

// MySQLGroupConcatMaxLen is the group_concat_max_len session value Open sets on
// MySQL connections unless the DSN names one. The server default of 1024 bytes
// holds only a few hundred permission IDs per role.
const MySQLGroupConcatMaxLen = "1048576"

// Config describes how to open the RBAC database.
type Config struct {
	Driver      string        `envconfig:"DRIVER" default:"sqlite" validate:"oneof=postgres mysql sqlite"`
	DSN         string        `envconfig:"DSN" required:"true" validate:"required"` // sqlite DSNs get _foreign_keys=1 unless they set it
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"5m" validate:"gte=0"`
	CacheSize   int           `envconfig:"CACHE_SIZE" default:"1024" validate:"gte=0"`
	AutoMigrate bool          `envconfig:"AUTO_MIGRATE" default:"false"`
	Pool        PoolConfig    `envconfig:"POOL"`
}

// LoadConfig reads Config from RBAC_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("rbackit: load config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("rbackit: invalid config: %s", describeValidation(err))
	}
	return cfg, nil
}

// Database is an open RBAC database with its adapter. Close releases the
// connection; the adapter itself never closes it.
type Database struct {
	DB      *bun.DB
	Adapter *SQLAdapter
	Cache   *CachedStorage // nil when caching is disabled

	kit *dbkit.DBKit
}

// Open connects to the database described by cfg, configures the pool and,
// when cfg.AutoMigrate is set, creates the schema.
//
// PostgreSQL connections go through dbkit. SQLite is limited to a single
// connection, which also keeps ":memory:" databases alive.
func Open(ctx context.Context, cfg Config, opts ...AdapterOption) (*Database, error) {
	var (
		db  *bun.DB
		kit *dbkit.DBKit
		err error
	)

	pool := cfg.Pool
	switch cfg.Driver {
	case DriverPostgres:
		kit, err = dbkit.New(dbkit.Config{URL: cfg.DSN})
		if err != nil {
			return nil, fmt.Errorf("rbackit: open postgres: %w", err)
		}
		db = kit.Bun()
	case DriverMySQL:
		db, err = openMySQL(cfg.DSN)
		if err != nil {
			return nil, err
		}
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("rbackit: open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
		pool = SQLitePoolConfig()
	default:
		return nil, fmt.Errorf("rbackit: unsupported driver %q", cfg.Driver)
	}

	database := &Database{DB: db, kit: kit}
	if pool.MaxOpenConnections > 0 {
		pool.Apply(db)
	}

	if err := db.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("rbackit: ping %s: %w", cfg.Driver, err)
	}

	adapter, err := NewSQLAdapter(db, append([]AdapterOption{WithDBKit(kit)}, opts...)...)
	if err != nil {
		database.Close()
		return nil, err
	}
	database.Adapter = adapter

	if cfg.AutoMigrate {
		if _, err := adapter.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
	}

	if cfg.CacheTTL > 0 && cfg.CacheSize > 0 {
		database.Cache = NewCachedStorage(adapter, cfg.CacheSize, cfg.CacheTTL)
	}
	return database, nil
}

// sqliteDSN turns on foreign key enforcement unless the DSN sets it. Without it
// SQLite accepts links to missing rows.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	return dsn + "?_foreign_keys=1"
}

// mysqlConfig parses dsn and sets the connection options the adapter relies on.
func mysqlConfig(dsn string) (*mysql.Config, error) {
	mcfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("rbackit: parse mysql dsn: %w", err)
	}
	// Timestamps scan into time.Time only with parseTime.
	mcfg.ParseTime = true
	if mcfg.Params == nil {
		mcfg.Params = make(map[string]string)
	}
	if _, ok := mcfg.Params["group_concat_max_len"]; !ok {
		mcfg.Params["group_concat_max_len"] = MySQLGroupConcatMaxLen
	}
	return mcfg, nil
}

func openMySQL(dsn string) (*bun.DB, error) {
	mcfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("rbackit: open mysql: %w", err)
	}
	return bun.NewDB(sql.OpenDB(connector), mysqldialect.New()), nil
}

// Storage returns the cached storage when caching is enabled, else the adapter.
func (d *Database) Storage() Storage {
	if d.Cache != nil {
		return d.Cache
	}
	return d.Adapter
}

// Manager returns a RoleManager over Storage.
func (d *Database) Manager(opts ...ManagerOption) *RoleManager {
	return NewRoleManager(d.Storage(), opts...)
}

// Collector returns a Prometheus collector over the adapter and cache.
func (d *Database) Collector() *Collector {
	if d.Cache != nil {
		return NewCollector(d.Adapter, d.Adapter, d.Cache)
	}
	return NewCollector(d.Adapter, d.Adapter, nil)
}

// Close closes the database connection.
func (d *Database) Close() error {
	if d.kit != nil {
		return d.kit.Close()
	}
	return d.DB.Close()
}
