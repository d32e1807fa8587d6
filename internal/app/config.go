package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"8"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RoleLockTTL   time.Duration `envconfig:"ROLE_LOCK_TTL" default:"10s"`

	CatalogFile            string `envconfig:"CATALOG_FILE"`
	RBACProtectSystemRoles bool   `envconfig:"RBAC_PROTECT_SYSTEM_ROLES" default:"true"`
	StaleGrantScanCron     string `envconfig:"STALE_GRANT_SCAN_CRON" default:"0 3 * * *"`
	WorkerConcurrency      int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.RoleLockTTL <= 0 {
		return errors.New("ROLE_LOCK_TTL must be positive")
	}
	if c.AppRateLimit < 0 {
		return errors.New("APP_RATE_LIMIT must not be negative")
	}
	if c.PGMaxConns < 0 {
		return errors.New("PG_MAX_CONNS must not be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// UsePostgres reports whether roles persist in PostgreSQL.
func (c *Config) UsePostgres() bool {
	return c != nil && c.PGDSN != ""
}

// UseRedis reports whether locks and jobs go through Redis.
func (c *Config) UseRedis() bool {
	return c != nil && c.RedisAddr != ""
}
