package container

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/osmaviation/spreadsheet/internal/config"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/cache"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{LocalRoot: t.TempDir(), DefaultDisk: config.DiskLocal},
		SQL:     config.SQLConfig{Driver: "sqlite"},
		Cache:   config.CacheConfig{Driver: config.CacheNone, TTL: time.Minute},
		Log:     config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestNewWithoutDatabase(t *testing.T) {
	c, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, []string{"local", "memory"}, c.Disks().Names())
	assert.Nil(t, c.Cache())
	assert.Equal(t, config.DiskLocal, c.DefaultDisk())
	assert.Same(t, c.Spreadsheet(), c.Spreadsheet())
	assert.NotSame(t, c.NewSpreadsheet(), c.NewSpreadsheet())
}

func TestNewWithSQLDiskAndCache(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.SQL.DSN = ":memory:"
	cfg.Cache.Driver = config.CacheSQL

	c, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, []string{"local", "memory", "sql"}, c.Disks().Names())
	assert.IsType(t, &cache.SQL{}, c.Cache())

	svc := c.NewSpreadsheet()
	t.Cleanup(func() { _ = svc.Close() })
	err = svc.Create(ctx, "report.xlsx", func(e *spreadsheet.Editor) error {
		return e.Sheet("Data", func(s *spreadsheet.Sheet) error {
			return s.SetRow(1, "Name", "Total")
		}).Err()
	})
	require.NoError(t, err)
	require.NoError(t, svc.Store(ctx, config.DiskSQL, ""))

	d, err := c.Disks().Disk(config.DiskSQL)
	require.NoError(t, err)
	ok, err := d.Exists(ctx, "report.xlsx")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLCacheWithoutDatabaseIsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = config.CacheSQL

	c, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.Nil(t, c.Cache())
}

func TestMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = config.CacheMemory

	c, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.IsType(t, &cache.Memory{}, c.Cache())

	_, err = c.Disks().Disk("missing")
	assert.ErrorIs(t, err, storage.ErrUnknownDisk)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
