package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, decoded from the environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	// SeedFile points at a YAML provisioning file applied at startup. The
	// value "sample" applies the built-in demo data; empty skips seeding.
	SeedFile string `env:"CANTEEN_SEED_FILE"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST"`
	Port            int           `env:"SERVER_PORT"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the store. Driver "memory" keeps everything in
// process; "postgres" requires a URL-form DSN.
type DatabaseConfig struct {
	Driver          string        `env:"DATABASE_DRIVER"`
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME"`
	Migrate         bool          `env:"DATABASE_MIGRATE"`
}

// SessionConfig controls session tokens and storage.
type SessionConfig struct {
	Secret        string        `env:"SESSION_SECRET"`
	TTL           time.Duration `env:"SESSION_TTL"`
	Store         string        `env:"SESSION_STORE"`
	SweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE"`
	SecureCookie  bool          `env:"SESSION_SECURE_COOKIE"`
}

// RedisConfig is used when SessionConfig.Store is "redis".
type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// AMQPConfig enables order event publishing when URL is set.
type AMQPConfig struct {
	URL string `env:"AMQP_URL"`
}

// CORSConfig lists allowed browser origins, comma separated.
type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
}

// Origins splits AllowedOrigins.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RateLimitConfig bounds login attempts per client IP.
type RateLimitConfig struct {
	LoginPerMinute int `env:"LOGIN_RATE_PER_MINUTE"`
	LoginBurst     int `env:"LOGIN_RATE_BURST"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL"`
	Format     string `env:"LOG_FORMAT"`
	Output     string `env:"LOG_OUTPUT"`
	FilePrefix string `env:"LOG_FILE_PREFIX"`
}

// Default returns the configuration used for unset variables.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "memory",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Migrate:         true,
		},
		Session: SessionConfig{
			TTL:           8 * time.Hour,
			Store:         "memory",
			SweepSchedule: "@every 1m",
		},
		RateLimit: RateLimitConfig{LoginPerMinute: 10, LoginBurst: 5},
		Logging:   LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load reads an optional .env file, decodes the environment over the
// defaults and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the process environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if len(c.Session.Secret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.Session.Store)
	}
	if c.RateLimit.LoginPerMinute <= 0 || c.RateLimit.LoginBurst <= 0 {
		return fmt.Errorf("login rate limit must be positive")
	}
	return nil
}
