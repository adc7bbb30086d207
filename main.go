package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
	"github.com/ShawnEdgell/aoe-builds-api/internal/cache"
	"github.com/ShawnEdgell/aoe-builds-api/internal/config"
	"github.com/ShawnEdgell/aoe-builds-api/internal/repository"
	"github.com/ShawnEdgell/aoe-builds-api/internal/scheduler"
	"github.com/ShawnEdgell/aoe-builds-api/internal/scraper"
	"github.com/ShawnEdgell/aoe-builds-api/internal/server"
)

func main() {
	// --- Logger Setup ---
	var loggerHandler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	})
	logger := slog.New(loggerHandler)
	slog.SetDefault(logger)

	// --- Load .env for local development ---
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found or error loading, relying on system environment variables or defaults.")
	}

	appConfig := config.Load()

	// --- Persistent cache ---
	slog.Info("Initializing persistent cache...", "backend", appConfig.CacheBackend)
	buildCache, err := cache.New(appConfig)
	if err != nil {
		slog.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer buildCache.Close()

	// --- Store, scraper, query engine ---
	store := builds.NewStore()
	scrapeClient := scraper.NewClient(appConfig)
	buildRepo := repository.NewBuildRepository(store, buildCache, appConfig.CacheTTL, appConfig.SearchCacheTTL)

	// --- Refresh orchestrator ---
	slog.Info("Initializing refresh scheduler...")
	dataScheduler := scheduler.NewScheduler(scrapeClient, store, buildCache, appConfig.RefreshInterval)
	dataScheduler.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// --- Start HTTP server in a goroutine ---
	var serverErr error
	go func() {
		slog.Info("Starting HTTP server for AoE builds API...", "port", appConfig.ServerPort)
		router := server.NewRouter(buildRepo, dataScheduler, store, buildCache)
		if err := server.Run(appConfig, router); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			serverErr = err
			stop <- syscall.SIGINT
		}
	}()

	<-stop

	slog.Info("Shutdown signal received. Cleaning up...")
	dataScheduler.Stop()

	if serverErr != nil {
		slog.Error("Exiting due to server error.", "error", serverErr)
		os.Exit(1)
	}
	slog.Info("Application shut down gracefully.")
}
