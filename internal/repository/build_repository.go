// Package repository implements the query engine between the HTTP handlers
// and the build data: combinable filters, deterministic sort, pagination,
// all behind the persistent TTL cache.
package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
	"github.com/ShawnEdgell/aoe-builds-api/internal/cache"
)

type BuildRepository struct {
	store      *builds.Store
	cache      *cache.Cache
	defaultTTL time.Duration
	// Search results churn more than plain listings, so they get a
	// shorter TTL.
	searchTTL time.Duration
}

func NewBuildRepository(store *builds.Store, c *cache.Cache, defaultTTL, searchTTL time.Duration) *BuildRepository {
	return &BuildRepository{
		store:      store,
		cache:      c,
		defaultTTL: defaultTTL,
		searchTTL:  searchTTL,
	}
}

// Query applies the filters, sorts, and slices one page out of the current
// dataset. Identical requests hit the same cache entry; the response's
// Cached flag reports whether this one did.
func (r *BuildRepository) Query(ctx context.Context, filters builds.FilterParams, p builds.PaginationParams) (builds.PaginatedResponse, error) {
	if err := p.Validate(); err != nil {
		return builds.PaginatedResponse{}, err
	}

	key := cache.QueryKey(filters, p)
	if raw, ok := r.cache.Get(ctx, key); ok {
		var resp builds.PaginatedResponse
		if err := json.Unmarshal(raw, &resp); err == nil {
			resp.Cached = true
			return resp, nil
		}
		slog.Warn("Discarding undecodable cache entry", "key", key)
	}

	matched := r.filter(filters)
	sortBuilds(matched, filters.SortKey, filters.SortDir)
	resp := builds.NewPaginatedResponse(matched, p)

	if raw, err := json.Marshal(resp); err == nil {
		r.cache.Set(ctx, key, raw, r.ttlFor(filters))
	}
	return resp, nil
}

// filter narrows the current snapshot down with AND-composed predicates.
// The type and difficulty indexes make single-filter lookups O(1); the
// returned slice is freshly allocated, never a snapshot slice, so the sort
// that follows cannot mutate the store.
func (r *BuildRepository) filter(filters builds.FilterParams) []builds.Build {
	var base []builds.Build
	switch {
	case filters.BuildType != nil:
		base = r.store.ByType(*filters.BuildType)
	case filters.Difficulty != nil:
		base = r.store.ByDifficulty(*filters.Difficulty)
	default:
		base = r.store.All()
	}

	matched := make([]builds.Build, 0, len(base))
	for _, b := range base {
		if filters.BuildType != nil && filters.Difficulty != nil && b.Difficulty != *filters.Difficulty {
			continue
		}
		if filters.Query != nil && !matchesQuery(b, *filters.Query) {
			continue
		}
		matched = append(matched, b)
	}
	return matched
}

// matchesQuery reports whether the build contains the search term in its
// name or description, case-insensitively. The empty term matches every
// record, since every string contains the empty substring.
func matchesQuery(b builds.Build, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(b.Name), q) ||
		strings.Contains(strings.ToLower(b.Description), q)
}

// sortBuilds sorts in place, stably: records that compare equal keep their
// insertion order. SortNone leaves insertion order untouched.
func sortBuilds(records []builds.Build, key builds.SortKey, dir builds.SortDir) {
	if key == builds.SortNone {
		return
	}

	less := lessFunc(key)
	if dir == builds.SortDesc {
		asc := less
		less = func(a, b builds.Build) bool { return asc(b, a) }
	}
	sort.SliceStable(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
}

func lessFunc(key builds.SortKey) func(a, b builds.Build) bool {
	switch key {
	case builds.SortByDifficulty:
		return func(a, b builds.Build) bool { return a.Difficulty < b.Difficulty }
	case builds.SortByBuildType:
		return func(a, b builds.Build) bool { return a.BuildType < b.BuildType }
	case builds.SortByFeudalTime:
		return func(a, b builds.Build) bool { return intOrZero(a.FeudalAgeTime) < intOrZero(b.FeudalAgeTime) }
	case builds.SortByCastleTime:
		return func(a, b builds.Build) bool { return intOrZero(a.CastleAgeTime) < intOrZero(b.CastleAgeTime) }
	default:
		return func(a, b builds.Build) bool { return a.Name < b.Name }
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func (r *BuildRepository) ttlFor(filters builds.FilterParams) time.Duration {
	if filters.Query != nil {
		return r.searchTTL
	}
	return r.defaultTTL
}

// CacheStats reports statistics from the persistent cache.
func (r *BuildRepository) CacheStats(ctx context.Context) (cache.Stats, error) {
	return r.cache.Stats(ctx)
}
