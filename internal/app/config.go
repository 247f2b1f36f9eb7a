package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the query service, the worker and the loader.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"60s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	StoreDriver   string `envconfig:"STORE_DRIVER" default:"sqlite"`
	StorePath     string `envconfig:"STORE_PATH" default:"database.db"`
	ServeDir      string `envconfig:"SERVE_DIR" default:"."`
	StoreMaxConns int    `envconfig:"STORE_MAX_CONNS" default:"8"`
	PGDSN         string `envconfig:"PG_DSN"`

	SourcePath     string `envconfig:"SOURCE_PATH" default:"ReceitaFederal_QuadroSocietario.csv"`
	SourceEncoding string `envconfig:"SOURCE_ENCODING" default:"utf-8"`

	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	CacheSize int           `envconfig:"CACHE_SIZE" default:"4096"`

	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`
	RebuildCron        string `envconfig:"REBUILD_CRON"`
}

// LoadConfig reads an optional .env file, then configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite":
		if c.StorePath == "" {
			return errors.New("store path must be provided")
		}
	case "postgres":
		if c.PGDSN == "" {
			return errors.New("postgres dsn must be provided when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.StoreDriver)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("rate limit must not be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool {
	return c != nil && c.RedisAddr != ""
}
