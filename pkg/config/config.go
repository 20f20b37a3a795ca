package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
)

// MinSigningKeyBytes is the shortest accepted HMAC signing key
const MinSigningKeyBytes = 32

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      storage.Config      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
	Jobs          JobsConfig          `yaml:"jobs"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	SigningKey    string `yaml:"signing_key"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
	ListUsersRole string `yaml:"list_users_role"`
}

// RateLimitConfig holds request throttling settings
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	// RequestsPerWindow applies to callers presenting a valid token
	RequestsPerWindow int `yaml:"requests_per_window"`
	// AnonymousRequestsPerWindow applies per client IP to everyone else, login included
	AnonymousRequestsPerWindow int           `yaml:"anonymous_requests_per_window"`
	Window                     time.Duration `yaml:"window"`
	Burst                      int           `yaml:"burst"`
	FailOpen                   bool          `yaml:"fail_open"` // allow requests when Redis is unreachable
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// JobsConfig holds background job schedules
type JobsConfig struct {
	StatsSchedule string `yaml:"stats_schedule"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: observability.DefaultShutdownTimeout,
			HealthPort:      "9090",
		},
		Database: storage.DefaultConfig(),
		Auth: AuthConfig{
			Issuer:        "checklist-api",
			Audience:      "checklist-clients",
			BcryptCost:    auth.DefaultBcryptCost,
			ListUsersRole: string(auth.RoleAdmin),
		},
		RateLimit: RateLimitConfig{
			Enabled:                    true,
			RequestsPerWindow:          1000,
			AnonymousRequestsPerWindow: 100,
			Window:                     time.Minute,
			Burst:                      10,
			FailOpen:                   true,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    observability.DefaultServiceName,
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
		Jobs: JobsConfig{
			StatsSchedule: observability.DefaultStatsSchedule,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by CHECKLIST_CONFIG_FILE, and CHECKLIST_* environment variables, in
// that order of precedence
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CHECKLIST_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays values from a YAML file onto cfg
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("CHECKLIST_HOST", s.Host)
	s.Port = getEnv("CHECKLIST_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("CHECKLIST_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("CHECKLIST_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("CHECKLIST_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("CHECKLIST_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.HealthPort = getEnv("CHECKLIST_HEALTH_PORT", s.HealthPort)

	db := &c.Database
	db.Driver = getEnv("CHECKLIST_DB_DRIVER", db.Driver)
	db.DSN = getEnv("CHECKLIST_DB_DSN", db.DSN)
	if replicas := getEnv("CHECKLIST_DB_REPLICA_DSNS", ""); replicas != "" {
		db.ReplicaDSNs = ParseList(replicas)
	}
	db.MaxConns = getEnvInt("CHECKLIST_DB_MAX_CONNS", db.MaxConns)
	db.MinConns = getEnvInt("CHECKLIST_DB_MIN_CONNS", db.MinConns)
	db.Timeout = getEnvDuration("CHECKLIST_DB_TIMEOUT", db.Timeout)
	db.MaxLifetime = getEnvDuration("CHECKLIST_DB_MAX_LIFETIME", db.MaxLifetime)
	db.MaxIdleTime = getEnvDuration("CHECKLIST_DB_MAX_IDLE_TIME", db.MaxIdleTime)
	db.ReplicaCheckInterval = getEnvDuration("CHECKLIST_DB_REPLICA_CHECK_INTERVAL", db.ReplicaCheckInterval)
	db.MigrateOnStart = getEnvBool("CHECKLIST_DB_MIGRATE_ON_START", db.MigrateOnStart)

	db.Redis.URL = getEnv("CHECKLIST_REDIS_URL", db.Redis.URL)
	db.Redis.Password = getEnv("CHECKLIST_REDIS_PASSWORD", db.Redis.Password)
	db.Redis.DB = getEnvInt("CHECKLIST_REDIS_DB", db.Redis.DB)
	db.Redis.MaxRetries = getEnvInt("CHECKLIST_REDIS_MAX_RETRIES", db.Redis.MaxRetries)
	db.Redis.PoolSize = getEnvInt("CHECKLIST_REDIS_POOL_SIZE", db.Redis.PoolSize)

	a := &c.Auth
	a.SigningKey = getEnv("CHECKLIST_SIGNING_KEY", a.SigningKey)
	a.Issuer = getEnv("CHECKLIST_TOKEN_ISSUER", a.Issuer)
	a.Audience = getEnv("CHECKLIST_TOKEN_AUDIENCE", a.Audience)
	a.BcryptCost = getEnvInt("CHECKLIST_BCRYPT_COST", a.BcryptCost)
	a.ListUsersRole = getEnv("CHECKLIST_LIST_USERS_ROLE", a.ListUsersRole)

	rl := &c.RateLimit
	rl.Enabled = getEnvBool("CHECKLIST_RATE_LIMIT_ENABLED", rl.Enabled)
	rl.RequestsPerWindow = getEnvInt("CHECKLIST_RATE_LIMIT_REQUESTS", rl.RequestsPerWindow)
	rl.AnonymousRequestsPerWindow = getEnvInt("CHECKLIST_RATE_LIMIT_ANONYMOUS_REQUESTS", rl.AnonymousRequestsPerWindow)
	rl.Window = getEnvDuration("CHECKLIST_RATE_LIMIT_WINDOW", rl.Window)
	rl.Burst = getEnvInt("CHECKLIST_RATE_LIMIT_BURST", rl.Burst)
	rl.FailOpen = getEnvBool("CHECKLIST_RATE_LIMIT_FAIL_OPEN", rl.FailOpen)

	o := &c.Observability
	o.LogLevel = getEnv("CHECKLIST_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("CHECKLIST_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("CHECKLIST_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("CHECKLIST_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("CHECKLIST_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("CHECKLIST_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("CHECKLIST_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("CHECKLIST_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)

	c.Jobs.StatsSchedule = getEnv("CHECKLIST_STATS_SCHEDULE", c.Jobs.StatsSchedule)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.HealthPort == "" {
		return errors.New("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return errors.New("server port and health port must be different")
	}

	switch c.Database.Driver {
	case storage.DriverPostgres, storage.DriverSQLite:
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}
	if len(c.Database.ReplicaDSNs) > 0 && c.Database.ReplicaCheckInterval <= 0 {
		return errors.New("replica check interval must be positive when replicas are configured")
	}

	if c.Auth.SigningKey == "" {
		return errors.New("token signing key is required")
	}
	if len(c.Auth.SigningKey) < MinSigningKeyBytes {
		return fmt.Errorf("token signing key must be at least %d bytes", MinSigningKeyBytes)
	}
	if c.Auth.Issuer == "" || c.Auth.Audience == "" {
		return errors.New("token issuer and audience are required")
	}
	if _, err := auth.ParseRole(c.Auth.ListUsersRole); err != nil {
		return fmt.Errorf("invalid list users role: %w", err)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.AnonymousRequestsPerWindow <= 0 {
			return errors.New("rate limit requests per window must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return errors.New("OpenTelemetry sample ratio must be between 0 and 1")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// TokenConfig builds the immutable token settings for the issuer
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		SigningKey: []byte(c.Auth.SigningKey),
		Issuer:     c.Auth.Issuer,
		Audience:   c.Auth.Audience,
		Lifetime:   auth.DefaultTokenLifetime,
	}
}

// ListUsersRole returns the role required to list accounts
func (c *Config) ListUsersRole() auth.Role {
	role, err := auth.ParseRole(c.Auth.ListUsersRole)
	if err != nil {
		return auth.RoleAdmin
	}
	return role
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLogLevel(c.Observability.LogLevel)
}

// OTelConfig converts the observability section for observability.InitOTel
func (c *Config) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// ParseList splits a comma-separated list, dropping blanks
func ParseList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
