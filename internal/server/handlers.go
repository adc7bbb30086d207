package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
	"github.com/ShawnEdgell/aoe-builds-api/internal/cache"
	"github.com/ShawnEdgell/aoe-builds-api/internal/repository"
	"github.com/ShawnEdgell/aoe-builds-api/internal/scheduler"
)

type errorResponse struct {
	Error string `json:"error"`
}

type refreshResponse struct {
	Count      int   `json:"count"`
	DurationMs int64 `json:"duration_ms"`
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}

// parseListParams turns the query string into validated filter and
// pagination parameters. Anything out of bounds or outside the closed enums
// is rejected here, before the cache or store is touched.
func parseListParams(r *http.Request) (builds.FilterParams, builds.PaginationParams, error) {
	q := r.URL.Query()

	var filters builds.FilterParams
	p := builds.DefaultPagination()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filters, p, &builds.ValidationError{Field: "page", Reason: "must be an integer"}
		}
		p.Page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filters, p, &builds.ValidationError{Field: "size", Reason: "must be an integer"}
		}
		p.Size = n
	}
	if err := p.Validate(); err != nil {
		return filters, p, err
	}

	if v := q.Get("build_type"); v != "" {
		t, err := builds.ParseBuildType(v)
		if err != nil {
			return filters, p, err
		}
		filters.BuildType = &t
	}
	if v := q.Get("difficulty"); v != "" {
		d, err := builds.ParseDifficulty(v)
		if err != nil {
			return filters, p, err
		}
		filters.Difficulty = &d
	}
	if q.Has("q") {
		// A provided-but-empty q is a different request from no q at all;
		// both match everything, but they must not share a cache key.
		query := q.Get("q")
		filters.Query = &query
	}

	sortKey, err := builds.ParseSortKey(q.Get("sort_by"))
	if err != nil {
		return filters, p, err
	}
	filters.SortKey = sortKey

	sortDir, err := builds.ParseSortDir(q.Get("sort_order"))
	if err != nil {
		return filters, p, err
	}
	filters.SortDir = sortDir

	return filters, p, nil
}

// BuildsHandler serves filtered, sorted, paginated build listings. The
// cache status is surfaced both as the X-Cache header and the response's
// cached field.
func BuildsHandler(repo *repository.BuildRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, pagination, err := parseListParams(r)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		resp, err := repo.Query(r.Context(), filters, pagination)
		if err != nil {
			var verr *builds.ValidationError
			if errors.As(err, &verr) {
				writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
				return
			}
			slog.Error("Query failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			return
		}

		if resp.Cached {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		writeJSONResponse(w, http.StatusOK, resp)
	}
}

// BuildTypesHandler lists the supported build types.
func BuildTypesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, builds.BuildTypes())
	}
}

// DifficultiesHandler lists the supported difficulty ratings.
func DifficultiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, builds.Difficulties())
	}
}

// RefreshHandler triggers a dataset refresh. A failed scrape is reported
// here and only here; read endpoints keep serving the previous data.
func RefreshHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := sched.Refresh(r.Context())
		if err != nil {
			slog.Error("Manual refresh failed", "error", err)
			writeJSONResponse(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		writeJSONResponse(w, http.StatusOK, refreshResponse{
			Count:      result.Count,
			DurationMs: result.Duration.Milliseconds(),
		})
	}
}

// CacheStatsHandler reports persistent-cache statistics.
func CacheStatsHandler(repo *repository.BuildRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.CacheStats(r.Context())
		if err != nil {
			slog.Error("Failed to read cache stats", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, errorResponse{Error: "failed to read cache stats"})
			return
		}
		writeJSONResponse(w, http.StatusOK, stats)
	}
}

// HealthCheckHandler reports liveness. An empty dataset is healthy (the
// first refresh may still be running); an unreachable cache backend is not.
func HealthCheckHandler(store *builds.Store, c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := c.Ping(ctx); err != nil {
			slog.Error("Health check failed: cache backend ping error", "error", err)
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"reason": "cache_backend_error",
			})
			return
		}

		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"status":       "ok",
			"builds":       store.Len(),
			"last_updated": store.LastUpdated(),
		})
	}
}
