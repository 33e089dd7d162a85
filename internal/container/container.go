// Package container builds the spreadsheet service graph from configuration:
// logger, storage disks, optional database and the header cache.
package container

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"

	"github.com/osmaviation/spreadsheet/internal/config"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/cache"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/storage"
)

// Container owns the long-lived dependencies of the spreadsheet service.
type Container struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *sqlx.DB
	disks  *storage.Manager
	cache  cache.Cache
	shared *spreadsheet.Service
}

// New opens the configured database, registers the disks and selects the
// cache. A nil logger is replaced with a no-op one.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{cfg: cfg, log: log, disks: storage.NewManager()}

	if cfg.SQL.Enabled() {
		db, err := openDB(cfg.SQL)
		if err != nil {
			return nil, err
		}
		c.db = db
	}

	if err := c.registerDisks(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.selectCache(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	log.Info("container ready",
		zap.Strings("disks", c.disks.Names()),
		zap.String("cache", c.cacheName()),
	)
	return c, nil
}

func openDB(cfg config.SQLConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	// An in-memory sqlite database exists per connection.
	if cfg.Driver == "sqlite" && strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func (c *Container) registerDisks(ctx context.Context) error {
	local, err := storage.NewLocalDisk(c.cfg.Storage.LocalRoot)
	if err != nil {
		return fmt.Errorf("local disk: %w", err)
	}
	c.disks.Register(config.DiskLocal, local)
	c.log.Debug("local disk", zap.String("root", local.Root()))
	c.disks.Register(config.DiskMemory, storage.NewMemoryDisk())

	if c.db != nil {
		d, err := storage.OpenSQLDisk(ctx, c.db, config.DiskSQL)
		if err != nil {
			return fmt.Errorf("sql disk: %w", err)
		}
		c.disks.Register(config.DiskSQL, d)
	}
	return nil
}

func (c *Container) selectCache(ctx context.Context) error {
	switch c.cfg.Cache.Driver {
	case config.CacheMemory:
		c.cache = cache.NewMemory()
	case config.CacheSQL:
		if c.db == nil {
			c.log.Warn("sql cache requested without a database; header cache disabled")
			return nil
		}
		sc, err := cache.OpenSQL(ctx, c.db)
		if err != nil {
			return fmt.Errorf("sql cache: %w", err)
		}
		c.cache = sc
	}
	return nil
}

func (c *Container) cacheName() string {
	switch c.cache.(type) {
	case *cache.Memory:
		return config.CacheMemory
	case *cache.SQL:
		return config.CacheSQL
	}
	return config.CacheNone
}

// Logger returns the application logger.
func (c *Container) Logger() *zap.Logger { return c.log }

// Disks returns the registered storage disks.
func (c *Container) Disks() *storage.Manager { return c.disks }

// Cache returns the header cache, or nil when caching is off.
func (c *Container) Cache() cache.Cache { return c.cache }

// DefaultDisk names the disk used when a caller does not pick one.
func (c *Container) DefaultDisk() string { return c.cfg.Storage.DefaultDisk }

// NewSpreadsheet returns a fresh Service sharing the container's disks and
// cache. Use one per request or goroutine.
func (c *Container) NewSpreadsheet() *spreadsheet.Service {
	return spreadsheet.New(c.disks, spreadsheet.Options{
		Cache:    c.cache,
		CacheTTL: c.cfg.Cache.TTL,
		Logger:   c.log.Named("spreadsheet"),
		Extract:  spreadsheet.DefaultExtractOptions(),
	})
}

// Spreadsheet returns the container's shared Service, creating it on first
// use. It must not be used from more than one goroutine.
func (c *Container) Spreadsheet() *spreadsheet.Service {
	if c.shared == nil {
		c.shared = c.NewSpreadsheet()
	}
	return c.shared
}

// Close releases the shared workbook and the database.
func (c *Container) Close() error {
	var errs []error
	if c.shared != nil {
		errs = append(errs, c.shared.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}

// NewLogger builds a zap logger from cfg.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
