package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "CATALOG_TIMEOUT_SECONDS", "MOVIES_STORAGE",
		"MOVIES_RESULT_CACHE_MAX", "MOVIES_API_URL", "RATE_LIMIT_RPS",
	} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()
	if cfg.HTTPAddr != ":8090" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CatalogTimeout != 10*time.Second || cfg.CatalogRetries != 3 {
		t.Fatalf("unexpected catalog defaults: %+v", cfg)
	}
	if cfg.StorageBackend != "memory" || cfg.ResultCacheMax != 0 || cfg.RateLimitRPS != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MoviesAPIURL != "http://localhost:8090" {
		t.Fatalf("unexpected movies api url: %q", cfg.MoviesAPIURL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("MOVIES_STORAGE", "Bolt")
	t.Setenv("MOVIES_BOLT_PATH", "/tmp/favorites.db")
	t.Setenv("MOVIES_RESULT_CACHE_MAX", "64")
	t.Setenv("MOVIES_DETAIL_CACHE_MAX", "-5")
	t.Setenv("CATALOG_TIMEOUT_SECONDS", "abc")

	cfg := LoadConfig()
	if cfg.LogLevel != "debug" || cfg.StorageBackend != "bolt" || cfg.BoltPath != "/tmp/favorites.db" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.ResultCacheMax != 64 {
		t.Fatalf("expected result cache max 64, got %d", cfg.ResultCacheMax)
	}
	if cfg.DetailCacheMax != 0 {
		t.Fatalf("expected invalid detail cache max to fall back to 0, got %d", cfg.DetailCacheMax)
	}
	if cfg.CatalogTimeout != 10*time.Second {
		t.Fatalf("expected invalid timeout to fall back, got %v", cfg.CatalogTimeout)
	}
}
