package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQL is a Cache stored in a relational table, shared by every process
// pointed at the same database.
type SQL struct {
	db  *sqlx.DB
	now func() time.Time
}

var cacheSchema = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS spreadsheet_cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS spreadsheet_cache (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		expires_at BIGINT NOT NULL
	)`,
}

// OpenSQL prepares the cache table on db.
func OpenSQL(ctx context.Context, db *sqlx.DB) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	ddl, ok := cacheSchema[db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", db.DriverName())
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &SQL{db: db, now: time.Now}, nil
}

type cacheRow struct {
	Value     []byte `db:"value"`
	ExpiresAt int64  `db:"expires_at"`
}

func (c *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row cacheRow
	err := c.db.GetContext(ctx, &row,
		c.db.Rebind(`SELECT value, expires_at FROM spreadsheet_cache WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select cache key %q: %w", key, err)
	}
	// 0 means no expiry.
	if row.ExpiresAt != 0 && c.now().UnixMilli() >= row.ExpiresAt {
		if err := c.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return row.Value, true, nil
}

func (c *SQL) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = c.now().Add(ttl).UnixMilli()
	}
	if value == nil {
		value = []byte{}
	}
	_, err := c.db.ExecContext(ctx,
		c.db.Rebind(`INSERT INTO spreadsheet_cache (key, value, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		   value = excluded.value,
		   expires_at = excluded.expires_at`),
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert cache key %q: %w", key, err)
	}
	return nil
}

func (c *SQL) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx,
		c.db.Rebind(`DELETE FROM spreadsheet_cache WHERE key = ?`), key)
	if err != nil {
		return fmt.Errorf("delete cache key %q: %w", key, err)
	}
	return nil
}
