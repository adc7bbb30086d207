// Package scheduler coordinates dataset refreshes: one initial load at
// startup, periodic reloads, and on-demand refreshes from the API. At most
// one scrape is ever in flight; everything else keeps serving reads from
// the previous snapshot meanwhile.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
	"github.com/ShawnEdgell/aoe-builds-api/internal/cache"
)

// Fetcher is the external scraper collaborator. It may be slow and may fail
// transiently; the scheduler assumes nothing beyond "records or an error".
type Fetcher interface {
	FetchBuilds(ctx context.Context) ([]builds.Build, error)
}

// RefreshResult summarizes one completed refresh.
type RefreshResult struct {
	Count    int
	Duration time.Duration
}

type Scheduler struct {
	fetcher  Fetcher
	store    *builds.Store
	cache    *cache.Cache
	interval time.Duration
	group    singleflight.Group
	stopChan chan struct{}
}

func NewScheduler(fetcher Fetcher, store *builds.Store, c *cache.Cache, interval time.Duration) *Scheduler {
	return &Scheduler{
		fetcher:  fetcher,
		store:    store,
		cache:    c,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Refresh re-fetches the dataset from the scraper and swaps it in.
// Concurrent callers join the one in-flight refresh and share its result,
// so the upstream site never sees duplicate load. On failure the existing
// store and cache are left untouched and the error is returned.
func (s *Scheduler) Refresh(ctx context.Context) (RefreshResult, error) {
	v, err, shared := s.group.Do("refresh", func() (interface{}, error) {
		return s.doRefresh(ctx)
	})
	if shared {
		slog.Debug("Refresh joined an in-flight run")
	}
	if err != nil {
		return RefreshResult{}, err
	}
	return v.(RefreshResult), nil
}

func (s *Scheduler) doRefresh(ctx context.Context) (RefreshResult, error) {
	start := time.Now()

	records, err := s.fetcher.FetchBuilds(ctx)
	if err != nil {
		slog.Error("Refresh failed, keeping previous dataset", "error", err)
		return RefreshResult{}, fmt.Errorf("fetch builds: %w", err)
	}

	deduped := dedupe(records)
	if dropped := len(records) - len(deduped); dropped > 0 {
		slog.Info("Dropped duplicate builds during refresh", "dropped", dropped)
	}

	// Publish the new snapshot first, then drop every cached query result
	// so no stale filtered page outlives the refresh.
	s.store.ReplaceAll(deduped)
	s.cache.InvalidatePrefix(ctx, cache.QueryKeyPrefix)

	result := RefreshResult{Count: len(deduped), Duration: time.Since(start)}
	slog.Info("Refresh completed", "count", result.Count, "duration", result.Duration)
	return result, nil
}

// dedupe keeps the first occurrence of each (name, build_type) natural key.
func dedupe(records []builds.Build) []builds.Build {
	seen := make(map[string]bool, len(records))
	out := make([]builds.Build, 0, len(records))
	for _, b := range records {
		if seen[b.Key()] {
			continue
		}
		seen[b.Key()] = true
		out = append(out, b)
	}
	return out
}

// Start performs the initial data load and then refreshes on a ticker until
// Stop is called. A failed initial load is logged, not fatal: the API comes
// up empty and the next cycle (or a manual refresh) retries.
func (s *Scheduler) Start() {
	go func() {
		slog.Info("Scheduler: performing initial data load...")
		if _, err := s.Refresh(context.Background()); err != nil {
			slog.Error("Scheduler: initial data load failed", "error", err)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Refresh(context.Background()); err != nil {
					slog.Error("Scheduler: periodic refresh failed", "error", err)
				}
			case <-s.stopChan:
				slog.Info("Scheduler: stopped.")
				return
			}
		}
	}()
}

// Stop ends the periodic refresh loop. An in-flight refresh runs to
// completion; there is no cancellation of refreshes by design.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}
