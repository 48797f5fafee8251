package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	CatalogUpstreamURL string
	CatalogTimeout     time.Duration
	CatalogRetries     int
	CatalogUserAgent   string
	RateLimitRPS       float64
	RateLimitBurst     int

	MoviesAPIURL     string
	MoviesAPITimeout time.Duration
	ResultCacheMax   int
	DetailCacheMax   int

	StorageBackend string
	BoltPath       string
	RedisURL       string
	MongoURI       string
	MongoDatabase  string

	OTLPEndpoint string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8090"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		CatalogUpstreamURL: getEnv("CATALOG_UPSTREAM_URL", "https://jsonmock.hackerrank.com/api/movies/search"),
		CatalogTimeout:     time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 10)) * time.Second,
		CatalogRetries:     getEnvInt("CATALOG_RETRY_ATTEMPTS", 3),
		CatalogUserAgent:   getEnv("CATALOG_USER_AGENT", "moviefinder-catalog/1.0"),
		RateLimitRPS:       float64(getEnvInt("RATE_LIMIT_RPS", 50)),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 100),

		MoviesAPIURL:     getEnv("MOVIES_API_URL", "http://localhost:8090"),
		MoviesAPITimeout: time.Duration(getEnvInt("MOVIES_API_TIMEOUT_SECONDS", 15)) * time.Second,
		ResultCacheMax:   getEnvNonNegativeInt("MOVIES_RESULT_CACHE_MAX", 0),
		DetailCacheMax:   getEnvNonNegativeInt("MOVIES_DETAIL_CACHE_MAX", 0),

		StorageBackend: strings.ToLower(getEnv("MOVIES_STORAGE", "memory")),
		BoltPath:       getEnv("MOVIES_BOLT_PATH", defaultBoltPath()),
		RedisURL:       getEnv("REDIS_URL", ""),
		MongoURI:       getEnv("MONGO_URI", ""),
		MongoDatabase:  getEnv("MONGO_DATABASE", "moviefinder"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func defaultBoltPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "moviefinder.db"
	}
	return filepath.Join(dir, "moviefinder", "moviefinder.db")
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvNonNegativeInt accepts 0, which the cache sizes use for "unbounded".
func getEnvNonNegativeInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
