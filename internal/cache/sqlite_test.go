package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	backend, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite cache: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend, path
}

func TestSQLiteOpenRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSQLiteSetGetRoundtrip(t *testing.T) {
	backend, _ := openTestSQLite(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "builds:q:v1|page=1|size=10", []byte(`{"total":3}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := backend.Get(ctx, "builds:q:v1|page=1|size=10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != `{"total":3}` {
		t.Errorf("value = %s", value)
	}
}

func TestSQLiteMissOnAbsentKey(t *testing.T) {
	backend, _ := openTestSQLite(t)

	_, err := backend.Get(context.Background(), "builds:q:nope")
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestSQLiteExpiredEntryIsMiss(t *testing.T) {
	backend, _ := openTestSQLite(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "short", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(120 * time.Millisecond)

	if _, err := backend.Get(ctx, "short"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expired entry must be a miss, got %v", err)
	}

	// The expired row is pruned on read, not just skipped.
	stats, err := backend.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Errorf("expired row still on disk after Get: total=%d", stats.TotalEntries)
	}
}

func TestSQLiteOverwriteRestampsEntry(t *testing.T) {
	backend, _ := openTestSQLite(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "k", []byte("old"), 50*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := backend.Set(ctx, "k", []byte("new"), time.Minute); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	time.Sleep(120 * time.Millisecond)

	value, err := backend.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if string(value) != "new" {
		t.Errorf("value = %s, want new", value)
	}
}

func TestSQLiteDeletePrefix(t *testing.T) {
	backend, _ := openTestSQLite(t)
	ctx := context.Background()

	for _, key := range []string{"builds:q:one", "builds:q:two", "builds:other"} {
		if err := backend.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if err := backend.DeletePrefix(ctx, "builds:q:"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}

	if _, err := backend.Get(ctx, "builds:q:one"); !errors.Is(err, ErrMiss) {
		t.Error("builds:q:one should be gone")
	}
	if _, err := backend.Get(ctx, "builds:q:two"); !errors.Is(err, ErrMiss) {
		t.Error("builds:q:two should be gone")
	}
	if _, err := backend.Get(ctx, "builds:other"); err != nil {
		t.Errorf("builds:other should survive: %v", err)
	}
}

func TestSQLiteStats(t *testing.T) {
	backend, _ := openTestSQLite(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "live", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := backend.Set(ctx, "dead", []byte("v"), -time.Second); err != nil {
		t.Fatalf("set expired: %v", err)
	}

	// Two hits on the live entry.
	for i := 0; i < 2; i++ {
		if _, err := backend.Get(ctx, "live"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}

	stats, err := backend.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", stats.TotalEntries)
	}
	if stats.ActiveEntries != 1 {
		t.Errorf("ActiveEntries = %d, want 1", stats.ActiveEntries)
	}
	if stats.AvgAccessCount != 1.0 { // 2 hits across 2 entries
		t.Errorf("AvgAccessCount = %f, want 1.0", stats.AvgAccessCount)
	}
	if stats.LastAccessed.IsZero() {
		t.Error("LastAccessed should be set after a hit")
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	backend, path := openTestSQLite(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "persistent", []byte("survives"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Get(ctx, "persistent")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(value) != "survives" {
		t.Errorf("value = %s", value)
	}
}

func TestCacheWrapperDegradesToMiss(t *testing.T) {
	backend, _ := openTestSQLite(t)
	c := NewCache(backend)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "absent"); ok {
		t.Fatal("absent key must be a miss")
	}

	c.Set(ctx, "k", []byte("v"), time.Minute)
	value, ok := c.Get(ctx, "k")
	if !ok || string(value) != "v" {
		t.Fatalf("get = %s, %v", value, ok)
	}

	// A closed backend fails reads and writes; the wrapper must swallow
	// both rather than surface an error path to callers.
	backend.Close()
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("failed backend read must degrade to a miss")
	}
	c.Set(ctx, "k2", []byte("v"), time.Minute) // must not panic
}
