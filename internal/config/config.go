package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Cache backend selection values for CACHE_BACKEND.
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

type AppConfig struct {
	ServerPort string

	ScrapeBaseURL string
	ScrapeTimeout time.Duration

	CacheBackend   string
	CacheDBPath    string
	RedisAddr      string
	CacheTTL       time.Duration
	SearchCacheTTL time.Duration

	RefreshInterval time.Duration
}

func Load() *AppConfig {
	cfg := &AppConfig{
		ServerPort:      getEnv("PORT", "8000"),
		ScrapeBaseURL:   getEnv("SCRAPE_BASE_URL", "https://aoecompanion.com/build-guides"),
		ScrapeTimeout:   getEnvAsSeconds("SCRAPE_TIMEOUT_SECONDS", 30*time.Second),
		CacheBackend:    getEnv("CACHE_BACKEND", CacheBackendSQLite),
		CacheDBPath:     getEnv("CACHE_DB_PATH", "cache.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:        getEnvAsSeconds("CACHE_TTL_SECONDS", time.Hour),
		SearchCacheTTL:  getEnvAsSeconds("SEARCH_CACHE_TTL_SECONDS", 30*time.Minute),
		RefreshInterval: getEnvAsHours("REFRESH_INTERVAL_HOURS", 6*time.Hour),
	}

	if cfg.CacheBackend != CacheBackendSQLite && cfg.CacheBackend != CacheBackendRedis {
		log.Fatalf("FATAL ERROR: CACHE_BACKEND must be %q or %q, got %q.", CacheBackendSQLite, CacheBackendRedis, cfg.CacheBackend)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue != "" {
		if seconds, err := strconv.Atoi(strValue); err == nil {
			if seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
			log.Printf("Warning: Invalid non-positive value for %s (seconds): %s. Using default.", key, strValue)
		} else {
			log.Printf("Warning: Invalid integer format for %s (seconds): %s. Using default.", key, strValue)
		}
	}
	return fallback
}

func getEnvAsHours(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue != "" {
		if hours, err := strconv.Atoi(strValue); err == nil {
			if hours > 0 {
				return time.Duration(hours) * time.Hour
			}
			log.Printf("Warning: Invalid non-positive value for %s (hours): %s. Using default.", key, strValue)
		} else {
			log.Printf("Warning: Invalid integer format for %s (hours): %s. Using default.", key, strValue)
		}
	}
	return fallback
}
