package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLDisk stores blobs in a relational table. Several disks can share one
// table; each is isolated by its namespace.
type SQLDisk struct {
	db        *sqlx.DB
	namespace string
}

var blobSchema = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS spreadsheet_blobs (
		namespace TEXT NOT NULL,
		path TEXT NOT NULL,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, path)
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS spreadsheet_blobs (
		namespace TEXT NOT NULL,
		path TEXT NOT NULL,
		data BYTEA NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (namespace, path)
	)`,
}

// OpenSQLDisk prepares the blob table on db and returns a disk scoped to namespace.
func OpenSQLDisk(ctx context.Context, db *sqlx.DB, namespace string) (*SQLDisk, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("disk namespace is required")
	}
	ddl, ok := blobSchema[db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", db.DriverName())
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create blob table: %w", err)
	}
	return &SQLDisk{db: db, namespace: namespace}, nil
}

func (d *SQLDisk) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = d.db.GetContext(ctx, &data,
		d.db.Rebind(`SELECT data FROM spreadsheet_blobs WHERE namespace = ? AND path = ?`),
		d.namespace, p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, fmt.Errorf("select blob %s: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *SQLDisk) Put(ctx context.Context, path string, r io.Reader) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	_, err = d.db.ExecContext(ctx,
		d.db.Rebind(`INSERT INTO spreadsheet_blobs (namespace, path, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, path) DO UPDATE SET
		   data = excluded.data,
		   updated_at = excluded.updated_at`),
		d.namespace, p, data, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert blob %s: %w", path, err)
	}
	return nil
}

func (d *SQLDisk) Delete(ctx context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx,
		d.db.Rebind(`DELETE FROM spreadsheet_blobs WHERE namespace = ? AND path = ?`),
		d.namespace, p)
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", path, err)
	}
	return nil
}

func (d *SQLDisk) Exists(ctx context.Context, path string) (bool, error) {
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	var n int
	err = d.db.GetContext(ctx, &n,
		d.db.Rebind(`SELECT COUNT(1) FROM spreadsheet_blobs WHERE namespace = ? AND path = ?`),
		d.namespace, p)
	if err != nil {
		return false, fmt.Errorf("count blob %s: %w", path, err)
	}
	return n > 0, nil
}
