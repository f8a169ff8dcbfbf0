package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// MaxStorePageSize is the largest window the entity store serves per query.
const MaxStorePageSize = 1000

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port             string `env:"PORT" env-default:"8080"`
	DBURL            string `env:"DB_URL"`
	ReadTimeoutSecs  int    `env:"SERVER_READ_TIMEOUT" env-default:"15"`
	WriteTimeoutSecs int    `env:"SERVER_WRITE_TIMEOUT" env-default:"15"`
	IdleTimeoutSecs  int    `env:"SERVER_IDLE_TIMEOUT" env-default:"60"`

	DBMaxConns        int  `env:"DB_MAX_CONNS" env-default:"20"`
	DBMinConns        int  `env:"DB_MIN_CONNS" env-default:"2"`
	DBMaxIdleSecs     int  `env:"DB_MAX_CONN_IDLE_SECS" env-default:"300"`
	DBMaxLifeSecs     int  `env:"DB_MAX_CONN_LIFETIME_SECS" env-default:"3600"`
	DBConnTimeoutSecs int  `env:"DB_CONN_TIMEOUT_SECS" env-default:"10"`
	DBStatementCache  int  `env:"DB_STATEMENT_CACHE_CAPACITY" env-default:"256"`
	DBAutoMigrate     bool `env:"DB_AUTO_MIGRATE" env-default:"true"`

	// StoreCallTimeoutMs bounds every individual store call, reads and rating writes alike.
	StoreCallTimeoutMs int `env:"STORE_CALL_TIMEOUT_MS" env-default:"5000"`
	LoaderBatchSize    int `env:"LOADER_BATCH_SIZE" env-default:"1000"`
	LoaderMaxPages     int `env:"LOADER_MAX_PAGES" env-default:"100"`
	DefaultPageLimit   int `env:"DEFAULT_PAGE_LIMIT" env-default:"20"`
	MaxPageLimit       int `env:"MAX_PAGE_LIMIT" env-default:"100"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`

	LocalConfig
}

// LocalConfig holds the settings needed by commands that never touch the
// database.
type LocalConfig struct {
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`

	FavoritesDBPath string `env:"FAVORITES_DB_PATH" env-default:"favorites.db"`
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadLocal reads only the device-local settings.
func LoadLocal() (LocalConfig, error) {
	var cfg LocalConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return LocalConfig{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return LocalConfig{}, err
	}
	return cfg, nil
}

func (c LocalConfig) validate() error {
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	if strings.TrimSpace(c.FavoritesDBPath) == "" {
		return fmt.Errorf("FAVORITES_DB_PATH must not be empty")
	}
	return nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DBURL) == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if c.StoreCallTimeoutMs <= 0 {
		return fmt.Errorf("STORE_CALL_TIMEOUT_MS must be positive")
	}
	if c.LoaderBatchSize <= 0 || c.LoaderBatchSize > MaxStorePageSize {
		return fmt.Errorf("LOADER_BATCH_SIZE must be between 1 and %d", MaxStorePageSize)
	}
	if c.LoaderMaxPages <= 0 {
		return fmt.Errorf("LOADER_MAX_PAGES must be positive")
	}
	if c.MaxPageLimit <= 0 {
		return fmt.Errorf("MAX_PAGE_LIMIT must be positive")
	}
	if c.DefaultPageLimit <= 0 || c.DefaultPageLimit > c.MaxPageLimit {
		return fmt.Errorf("DEFAULT_PAGE_LIMIT must be between 1 and MAX_PAGE_LIMIT")
	}
	return c.LocalConfig.validate()
}

// StoreCallTimeout bounds a single entity-store or rating-log call.
func (c Config) StoreCallTimeout() time.Duration {
	return time.Duration(c.StoreCallTimeoutMs) * time.Millisecond
}
