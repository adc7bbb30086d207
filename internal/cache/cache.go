// Package cache provides the persistent TTL cache that sits between the
// query engine and the scraped dataset. Entries survive process restarts;
// an expired entry is logically absent even while still on disk.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShawnEdgell/aoe-builds-api/internal/config"
)

// ErrMiss is returned by backends when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Stats is a point-in-time summary of the cache, computed on demand rather
// than maintained incrementally so it cannot drift.
type Stats struct {
	TotalEntries   int       `json:"total_entries"`
	ActiveEntries  int       `json:"active_entries"`
	AvgAccessCount float64   `json:"avg_access_count"`
	LastAccessed   time.Time `json:"last_accessed"`
}

// Backend is the durable key-value medium behind the cache. Implementations
// must treat expired entries as absent on Get and bump the entry's access
// counter and last-accessed time on every hit.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// Cache wraps a Backend with the failure semantics the API relies on:
// caching is best-effort, so storage errors degrade to a miss on read and
// are logged and swallowed on write. A failing cache slows requests down
// but never fails them.
type Cache struct {
	backend Backend
}

// New selects and opens a backend from configuration. The SQLite backend is
// the default; Redis is available for deployments that already run one.
func New(cfg *config.AppConfig) (*Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		backend, err := OpenSQLite(cfg.CacheDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache at %s: %w", cfg.CacheDBPath, err)
		}
		return NewCache(backend), nil
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewCache(NewRedis(client)), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// NewCache wraps an already-open backend; used directly by tests.
func NewCache(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// Get returns the unexpired value for key, or ok=false on a miss. Backend
// failures are logged and reported as a miss so the caller recomputes.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.backend.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		slog.Debug("Cache miss", "key", key)
		return nil, false
	}
	if err != nil {
		slog.Warn("Cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("Cache hit", "key", key)
	return value, true
}

// Set upserts an entry with a fresh TTL window, best-effort.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops one entry, best-effort.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil {
		slog.Warn("Cache invalidate failed", "key", key, "error", err)
	}
}

// InvalidatePrefix drops every entry under prefix, best-effort. The refresh
// orchestrator uses this to ensure no filtered page outlives a refresh.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if err := c.backend.DeletePrefix(ctx, prefix); err != nil {
		slog.Warn("Cache prefix invalidate failed", "prefix", prefix, "error", err)
	}
}

// Stats reports cache statistics from the backend.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	return c.backend.Stats(ctx)
}

// Ping checks that the backend storage is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Close releases the backend storage.
func (c *Cache) Close() error {
	return c.backend.Close()
}
