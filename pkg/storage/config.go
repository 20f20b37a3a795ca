package storage

import "time"

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds database and Redis connection settings
type Config struct {
	Driver      string   `yaml:"driver"` // "postgres" or "sqlite3"
	DSN         string   `yaml:"dsn"`
	ReplicaDSNs []string `yaml:"replica_dsns"`

	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`

	// ReplicaCheckInterval is how often replicas are pinged, dropped when they
	// fail and reopened once they answer again
	ReplicaCheckInterval time.Duration `yaml:"replica_check_interval"`

	// MigrateOnStart applies pending schema migrations when the API starts
	MigrateOnStart bool `yaml:"migrate_on_start"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis client settings
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
	PoolSize   int    `yaml:"pool_size"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Driver:         DriverSQLite,
		DSN:            "file:checklist.db?_foreign_keys=on&_busy_timeout=5000",
		MaxConns:       20,
		MinConns:       2,
		Timeout:        10 * time.Second,
		MaxLifetime:    30 * time.Minute,
		MaxIdleTime:    5 * time.Minute,
		MigrateOnStart: true,

		ReplicaCheckInterval: 30 * time.Second,
		Redis: RedisConfig{
			MaxRetries: 3,
			PoolSize:   10,
		},
	}
}
