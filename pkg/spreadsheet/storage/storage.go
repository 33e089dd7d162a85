// Package storage provides the named blob backends ("disks") workbooks are
// loaded from and stored to.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrNotExist indicates the requested blob does not exist on the disk.
var ErrNotExist = errors.New("blob does not exist")

// ErrUnknownDisk indicates no disk is registered under the requested name.
var ErrUnknownDisk = errors.New("unknown disk")

// Disk is a storage backend addressed by logical path.
type Disk interface {
	// Open returns a reader over the blob stored at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Put stores everything read from r at path, replacing any previous blob.
	Put(ctx context.Context, path string, r io.Reader) error
	// Delete removes the blob at path. Deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error
	// Exists reports whether a blob is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
}

// Get reads the whole blob stored at path.
func Get(ctx context.Context, d Disk, path string) ([]byte, error) {
	rc, err := d.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// PutBytes stores data at path.
func PutBytes(ctx context.Context, d Disk, path string, data []byte) error {
	return d.Put(ctx, path, bytes.NewReader(data))
}

// Manager keeps the disks registered by name.
type Manager struct {
	mu    sync.RWMutex
	disks map[string]Disk
}

// NewManager returns an empty disk registry.
func NewManager() *Manager {
	return &Manager{disks: make(map[string]Disk)}
}

// Register binds d to name, replacing any disk previously registered under it.
func (m *Manager) Register(name string, d Disk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disks[strings.TrimSpace(name)] = d
}

// Disk resolves a disk by name.
func (m *Manager) Disk(name string) (Disk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disks[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisk, name)
	}
	return d, nil
}

// Names lists the registered disk names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.disks))
	for name := range m.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cleanPath normalizes a logical path: forward slashes, no leading slash.
func cleanPath(path string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(path, "\\", "/"))
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", fmt.Errorf("storage path is required")
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("storage path %q escapes the disk root", path)
		}
	}
	return p, nil
}
