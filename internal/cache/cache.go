// Package cache stores association payloads keyed by node so repeated
// expansions of the same node skip the backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Cache is a byte-value store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Clear drops every entry and reports how many were removed.
	Clear(ctx context.Context) (int, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is "memory", "disk", "redis" or "none".
	Backend   string
	Dir       string
	RedisAddr string
	RedisDB   int
	Prefix    string
}

// Open returns the configured cache, or nil for "none".
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "none", "off":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "disk":
		dir := opts.Dir
		if dir == "" {
			dir = filepath.Join(Dir(), "assoc")
		}
		return NewDisk(dir)
	case "redis":
		return NewRedis(ctx, RedisOptions{Addr: opts.RedisAddr, DB: opts.RedisDB, Prefix: opts.Prefix})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// Dir returns the cache directory path.
func Dir() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "kgx")
}

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is a process-local cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

// Set stores val. A zero ttl never expires.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Clear(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.entries = make(map[string]entry)
	return n, nil
}

func (m *Memory) Close() error { return nil }

// Disk keeps one file per key under a directory, named by the SHA-256 of the
// key. The first line of each file holds the expiry deadline, or "0" for
// none.
type Disk struct {
	dir string
	now func() time.Time
}

// NewDisk creates dir if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Disk{dir: dir, now: time.Now}, nil
}

func (d *Disk) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+".cache")
}

func (d *Disk) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	header, body, ok := strings.Cut(string(data), "\n")
	if !ok {
		return nil, false, nil
	}
	if header != "0" {
		deadline, err := time.Parse(time.RFC3339Nano, header)
		if err != nil || !d.now().Before(deadline) {
			_ = os.Remove(d.path(key))
			return nil, false, nil
		}
	}
	return []byte(body), true, nil
}

func (d *Disk) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	header := "0"
	if ttl > 0 {
		header = d.now().Add(ttl).UTC().Format(time.RFC3339Nano)
	}
	tmp := d.path(key) + ".tmp"
	if err := os.WriteFile(tmp, append([]byte(header+"\n"), val...), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, d.path(key))
}

func (d *Disk) Clear(context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*.cache"))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return n, err
		}
		n++
	}
	return n, nil
}

func (d *Disk) Close() error { return nil }
