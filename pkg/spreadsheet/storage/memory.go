package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryDisk keeps blobs in process memory. Useful for tests and scratch work.
type MemoryDisk struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryDisk returns an empty in-memory disk.
func NewMemoryDisk() *MemoryDisk {
	return &MemoryDisk{blobs: make(map[string][]byte)}
}

func (d *MemoryDisk) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	data, ok := d.blobs[p]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *MemoryDisk) Put(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	d.mu.Lock()
	d.blobs[p] = data
	d.mu.Unlock()
	return nil
}

func (d *MemoryDisk) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	d.mu.Lock()
	delete(d.blobs, p)
	d.mu.Unlock()
	return nil
}

func (d *MemoryDisk) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	d.mu.RLock()
	_, ok := d.blobs[p]
	d.mu.RUnlock()
	return ok, nil
}
