// Package config loads the spreadsheet service configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Disk names registered by the container.
const (
	DiskLocal  = "local"
	DiskMemory = "memory"
	DiskSQL    = "sql"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQL    = "sql"
)

// Config represents the complete application configuration.
type Config struct {
	Storage StorageConfig
	SQL     SQLConfig
	Cache   CacheConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Tracing TracingConfig
}

// StorageConfig selects where workbooks are stored.
type StorageConfig struct {
	LocalRoot   string `env:"SPREADSHEET_LOCAL_ROOT" envDefault:"storage/app" validate:"required"`
	DefaultDisk string `env:"SPREADSHEET_DEFAULT_DISK" envDefault:"local" validate:"oneof=local memory sql"`
}

// SQLConfig enables the "sql" disk and cache when DSN is set.
type SQLConfig struct {
	Driver string `env:"SPREADSHEET_SQL_DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres"`
	DSN    string `env:"SPREADSHEET_SQL_DSN"`
}

// Enabled reports whether a database is configured.
func (c SQLConfig) Enabled() bool {
	return c.DSN != ""
}

// CacheConfig selects the optional header cache.
//
// The sql driver costs a SELECT and an UPSERT the first time a service sees a
// header. Later lookups of the same header are answered in process, so the
// shared cache mostly pays off across processes and restarts.
type CacheConfig struct {
	Driver string        `env:"SPREADSHEET_CACHE_DRIVER" envDefault:"none" validate:"oneof=none memory sql"`
	TTL    time.Duration `env:"SPREADSHEET_CACHE_TTL" envDefault:"1h" validate:"gte=0"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `env:"SPREADSHEET_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"SPREADSHEET_LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr         string        `env:"SPREADSHEET_HTTP_ADDR" envDefault:":8080" validate:"required"`
	MaxUploadMB  int64         `env:"SPREADSHEET_HTTP_MAX_UPLOAD_MB" envDefault:"32" validate:"gt=0"`
	ReadTimeout  time.Duration `env:"SPREADSHEET_HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"SPREADSHEET_HTTP_WRITE_TIMEOUT" envDefault:"60s"`
}

// TracingConfig enables OTLP trace export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"SPREADSHEET_OTEL_ENDPOINT"`
	ServiceName string `env:"SPREADSHEET_OTEL_SERVICE_NAME" envDefault:"spreadsheet"`
}

// Load reads an optional .env file from each of dotenvFiles, then parses and
// validates the environment. Missing dotenv files are skipped.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Storage.DefaultDisk == DiskSQL && !c.SQL.Enabled() {
		return fmt.Errorf("invalid configuration: default disk %q needs SPREADSHEET_SQL_DSN", DiskSQL)
	}
	return nil
}
