package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	BillsAPI BillsAPIConfig `yaml:"bills_api"`
	Events   EventsConfig   `yaml:"events"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	SecureCookies   bool          `yaml:"secure_cookies"   env:"SERVER_SECURE_COOKIES"   env-default:"false"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-default:"host=localhost port=5432 user=postgres password=postgres dbname=billed sslmode=disable"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"billed"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"24h"`
	SessionTTL     time.Duration `yaml:"session_ttl"      env:"AUTH_SESSION_TTL"      env-default:"168h"`
}

// BillsAPIConfig selects the bills backend of the front end. With an empty
// URL the front end reads the repository in-process.
type BillsAPIConfig struct {
	URL        string        `yaml:"url"         env:"BILLS_API_URL"`
	Timeout    time.Duration `yaml:"timeout"     env:"BILLS_API_TIMEOUT"     env-default:"10s"`
	ReceiptURL string        `yaml:"receipt_url" env:"BILLS_RECEIPT_URL"     env-default:"/api/receipts"`
}

type EventsConfig struct {
	BufferSize int `yaml:"buffer_size" env:"EVENTS_BUFFER_SIZE" env-default:"100"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Load reads the YAML file named by CONFIG_PATH (default ./config.yaml) when
// it exists, then environment variables. ENV > YAML > env-default.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth token and session lifetimes must be positive")
	}
	if c.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be > 0 (got %d)", c.Events.BufferSize)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if u := c.BillsAPI.URL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("bills_api.url must be an http(s) URL (got %q)", u)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to their slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
	}
}
