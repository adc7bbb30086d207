package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisEnvelope wraps a cached value with the bookkeeping fields the stats
// endpoint reports. Redis expires entries natively; created/expires stamps
// are kept alongside so stats and the expiry invariant stay observable.
type redisEnvelope struct {
	Value        []byte    `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	AccessCount  int64     `json:"access_count"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Redis is the cache backend for deployments that already run a Redis
// instance; durability then depends on the server's persistence settings.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an existing Redis client.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode cache envelope: %w", err)
	}
	if !env.ExpiresAt.After(time.Now()) {
		// Redis should have expired it already; treat clock skew as a miss.
		_ = r.rdb.Del(ctx, key).Err()
		return nil, ErrMiss
	}

	env.AccessCount++
	env.LastAccessed = time.Now().UTC()
	if updated, err := json.Marshal(env); err == nil {
		// Keep the original TTL window; only the access stats changed.
		_ = r.rdb.Set(ctx, key, updated, redis.KeepTTL).Err()
	}
	return env.Value, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	env := redisEnvelope{
		Value:        value,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode cache envelope: %w", err)
	}
	if err := r.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete cache entry %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache entries: %w", err)
	}
	return nil
}

func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var totalAccess int64

	iter := r.rdb.Scan(ctx, 0, "builds:*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return Stats{}, fmt.Errorf("get cache entry for stats: %w", err)
		}
		var env redisEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		stats.TotalEntries++
		if env.ExpiresAt.After(time.Now()) {
			stats.ActiveEntries++
		}
		totalAccess += env.AccessCount
		if env.LastAccessed.After(stats.LastAccessed) {
			stats.LastAccessed = env.LastAccessed
		}
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("scan cache entries for stats: %w", err)
	}
	if stats.TotalEntries > 0 {
		stats.AvgAccessCount = float64(totalAccess) / float64(stats.TotalEntries)
	}
	return stats, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
