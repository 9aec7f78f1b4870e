package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
	Auth     AuthConfig
	Storage  StorageConfig `envPrefix:"STORAGE_"`
	Gateway  GatewayConfig `envPrefix:"GATEWAY_"`
	UI       UIConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr    string `env:"SERVER_ADDR"`
	Version string `env:"APP_VERSION" envDefault:"dev"`
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	URL             string        `env:"URL"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME"`
	UseMock         bool          `env:"USE_MOCK"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// AuthConfig groups the visitor session and token settings.
type AuthConfig struct {
	Session SessionConfig `envPrefix:"SESSION_"`
	Tokens  TokenConfig   `envPrefix:"JWT_"`
}

// SessionConfig controls the visitor cookie session.
type SessionConfig struct {
	Lifetime     time.Duration `env:"LIFETIME"      envDefault:"12h"`
	CookieName   string        `env:"COOKIE_NAME"   envDefault:"hopper_session"`
	CookieDomain string        `env:"COOKIE_DOMAIN"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

// TokenConfig controls the access tokens issued by the embedded auth gateway.
type TokenConfig struct {
	Secret        string        `env:"SECRET"`
	Issuer        string        `env:"ISSUER"          envDefault:"hopper-api"`
	Audience      string        `env:"AUDIENCE"        envDefault:"hopper-users"`
	AccessTTL     time.Duration `env:"ACCESS_TTL"      envDefault:"15m"`
	RememberMeTTL time.Duration `env:"REMEMBER_ME_TTL" envDefault:"720h"`
	TokenType     string        `env:"TOKEN_TYPE"      envDefault:"Bearer"`
}

// StorageBackend selects where per-visitor durable state is kept.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageRedis  StorageBackend = "redis"
	StorageNone   StorageBackend = "none"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := StorageBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case StorageMemory, StorageRedis, StorageNone:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: memory, redis, none)", string(text))
	}
}

// StorageConfig configures the durable key-value backend.
type StorageConfig struct {
	Backend  StorageBackend `env:"BACKEND"   envDefault:"memory"`
	RedisURL string         `env:"REDIS_URL"`
	Prefix   string         `env:"PREFIX"    envDefault:"hopper"`
	TTL      time.Duration  `env:"TTL"       envDefault:"720h"`
}

// GatewayConfig points the dashboard at the auth gateway.
type GatewayConfig struct {
	URL      string        `env:"URL"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"10s"`
	Embedded bool          `env:"EMBEDDED" envDefault:"true"`
}

// UIConfig controls dashboard behaviour.
type UIConfig struct {
	DefaultDark    bool          `env:"THEME_DEFAULT_DARK" envDefault:"true"`
	GuardSettle    time.Duration `env:"GUARD_SETTLE"       envDefault:"300ms"`
	VisitorIdleTTL time.Duration `env:"VISITOR_IDLE_TTL"   envDefault:"1h"`
}

// Load reads an optional .env file, inspects the environment and builds a Config value.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Server.Addr = firstNonEmpty(
		cfg.Server.Addr,
		os.Getenv("ADDR"),
		":8080",
	)

	cfg.Sanitize()

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}
	if cfg.Storage.Backend == StorageRedis && strings.TrimSpace(cfg.Storage.RedisURL) == "" {
		return Config{}, fmt.Errorf("storage backend redis requires STORAGE_REDIS_URL")
	}
	if !cfg.Gateway.Embedded && strings.TrimSpace(cfg.Gateway.URL) == "" {
		return Config{}, fmt.Errorf("an external gateway requires GATEWAY_URL")
	}

	return cfg, nil
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *Config) Sanitize() {
	if c.Auth.Tokens.AccessTTL <= 0 {
		c.Auth.Tokens.AccessTTL = 15 * time.Minute
	}
	if c.Auth.Tokens.RememberMeTTL < c.Auth.Tokens.AccessTTL {
		c.Auth.Tokens.RememberMeTTL = c.Auth.Tokens.AccessTTL
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 10 * time.Second
	}
	if c.UI.GuardSettle < 0 {
		c.UI.GuardSettle = 0
	}
	if c.UI.VisitorIdleTTL <= 0 {
		c.UI.VisitorIdleTTL = time.Hour
	}
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), ":")
}

// GatewayURL returns the external gateway base URL without a trailing slash. It is empty
// for an embedded gateway, which is called in-process.
func (c Config) GatewayURL() string {
	if c.Gateway.Embedded {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(c.Gateway.URL), "/")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
