package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	slogchi "github.com/samber/slog-chi"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
	"github.com/ShawnEdgell/aoe-builds-api/internal/cache"
	"github.com/ShawnEdgell/aoe-builds-api/internal/repository"
	"github.com/ShawnEdgell/aoe-builds-api/internal/scheduler"
)

// NewRouter wires the API routes. All collaborators are passed in
// explicitly so tests can assemble a router from fakes.
func NewRouter(repo *repository.BuildRepository, sched *scheduler.Scheduler, store *builds.Store, c *cache.Cache) http.Handler {
	r := chi.NewRouter()
	r.Use(slogchi.New(slog.Default()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/builds", BuildsHandler(repo))
		r.Get("/builds/types", BuildTypesHandler())
		r.Get("/builds/difficulties", DifficultiesHandler())
		r.Post("/refresh", RefreshHandler(sched))
		r.Get("/cache/stats", CacheStatsHandler(repo))
	})

	r.Get("/health", HealthCheckHandler(store, c))

	return r
}
