package cache

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key           TEXT PRIMARY KEY,
	value         BLOB NOT NULL,
	created_at    INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL,
	access_count  INTEGER NOT NULL DEFAULT 0,
	last_accessed INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at);
`

// SQLite is the default cache backend: a single database file, so cached
// entries written before a restart are served after it. Timestamps are
// stored as unix milliseconds and expiry is enforced in the read query, so
// an expired row is a miss even while it still exists on disk.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache db path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	now := time.Now().UnixMilli()

	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache WHERE key = ? AND expires_at > ?`, key, now,
	).Scan(&value)
	if err == sql.ErrNoRows {
		// Prune the expired row, if that is what we just stepped over.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ? AND expires_at <= ?`, key, now)
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	// Access statistics feed the stats endpoint only; expiry is pure TTL.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE cache SET access_count = access_count + 1, last_accessed = ? WHERE key = ?`, now, key,
	); err != nil {
		return nil, fmt.Errorf("update access stats: %w", err)
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache (key, value, created_at, expires_at, access_count, last_accessed)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		key, value, now.UnixMilli(), now.Add(ttl).UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (s *SQLite) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeLike(prefix) + "%"
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key LIKE ? ESCAPE '\'`, pattern); err != nil {
		return fmt.Errorf("delete cache entries by prefix: %w", err)
	}
	return nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	now := time.Now().UnixMilli()

	var stats Stats
	var lastAccessed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN expires_at > ? THEN 1 END),
		        COALESCE(AVG(access_count), 0),
		        COALESCE(MAX(last_accessed), 0)
		 FROM cache`, now,
	).Scan(&stats.TotalEntries, &stats.ActiveEntries, &stats.AvgAccessCount, &lastAccessed)
	if err != nil {
		return Stats{}, fmt.Errorf("query cache stats: %w", err)
	}
	if lastAccessed > 0 {
		stats.LastAccessed = time.UnixMilli(lastAccessed).UTC()
	}
	return stats, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
