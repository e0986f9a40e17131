package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=production"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	DB      DBConfig
	Session SessionConfig
	Redis   RedisConfig
	Mongo   MongoConfig
	Audit   AuditConfig
	Breaker BreakerConfig
}

type DBConfig struct {
	Driver string `env:"DB_DRIVER, default=sqlite3"`
	DSN    string `env:"DB_DSN,    default=file:rpm.db?_busy_timeout=5000"`
}

type SessionConfig struct {
	// Backend is "redis" or "sql".
	Backend       string        `env:"SESSION_BACKEND,        default=sql"`
	CookieName    string        `env:"SESSION_COOKIE_NAME,    default=rpm.sid"`
	CookieDomain  string        `env:"SESSION_COOKIE_DOMAIN,  default=localhost"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE,  default=false"`
	Window        time.Duration `env:"SESSION_WINDOW,         default=30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=15m"`
	BcryptCost    int           `env:"BCRYPT_COST,            default=10"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type MongoConfig struct {
	// URI left empty disables the audit trail.
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=rpm_portal"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

type BreakerConfig struct {
	MaxFailures uint32        `env:"BREAKER_MAX_FAILURES, default=5"`
	OpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT, default=10s"`
}

// IsDevelopment reports whether verbose diagnostics may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from the given lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "mysql", "sqlite3":
	default:
		return fmt.Errorf("config: DB_DRIVER must be mysql or sqlite3, got %q", c.DB.Driver)
	}
	switch c.Session.Backend {
	case "redis", "sql":
	default:
		return fmt.Errorf("config: SESSION_BACKEND must be redis or sql, got %q", c.Session.Backend)
	}
	if c.Session.Window <= 0 {
		return fmt.Errorf("config: SESSION_WINDOW must be positive")
	}
	return nil
}
