package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// exerciseStore checks the contract every backend has to honor.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "movie-favorites", `[{"externalId":"tt1"}]`); err != nil {
		t.Fatalf("set error: %v", err)
	}
	value, ok, err := store.Get(ctx, "movie-favorites")
	if err != nil || !ok || value != `[{"externalId":"tt1"}]` {
		t.Fatalf("unexpected get result: value=%q ok=%v err=%v", value, ok, err)
	}

	if err := store.Set(ctx, "movie-favorites", "[]"); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	if value, _, _ := store.Get(ctx, "movie-favorites"); value != "[]" {
		t.Fatalf("expected overwritten value, got %q", value)
	}

	if err := store.Set(ctx, "empty", ""); err != nil {
		t.Fatalf("set empty error: %v", err)
	}
	if value, ok, err := store.Get(ctx, "empty"); err != nil || !ok || value != "" {
		t.Fatalf("expected present empty value, got value=%q ok=%v err=%v", value, ok, err)
	}

	if err := store.Remove(ctx, "movie-favorites"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, ok, err := store.Get(ctx, "movie-favorites"); err != nil || ok {
		t.Fatalf("expected removed key to be absent, got ok=%v err=%v", ok, err)
	}
	if err := store.Remove(ctx, "never-set"); err != nil {
		t.Fatalf("removing an absent key should succeed, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	exerciseStore(t, store)
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "nested", "moviefinder.db"))
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moviefinder.db")
	store, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	if err := store.Set(context.Background(), "movie-favorites", "[1]"); err != nil {
		t.Fatalf("set error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	reopened, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("reopen bolt store: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(context.Background(), "movie-favorites")
	if err != nil || !ok || value != "[1]" {
		t.Fatalf("expected persisted value, got value=%q ok=%v err=%v", value, ok, err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	store, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store by default, got %T", store)
	}

	store, err = Open(context.Background(), Config{Backend: "BOLT", BoltPath: filepath.Join(t.TempDir(), "kv.db")})
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*BoltStore); !ok {
		t.Fatalf("expected bolt store, got %T", store)
	}

	if _, err := Open(context.Background(), Config{Backend: "etcd"}); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	if _, err := Open(context.Background(), Config{Backend: BackendBolt}); err == nil {
		t.Fatal("expected bolt without a path to fail")
	}
	if _, err := Open(context.Background(), Config{Backend: BackendRedis}); err == nil {
		t.Fatal("expected redis without a url to fail")
	}
	if _, err := Open(context.Background(), Config{Backend: BackendMongo}); err == nil {
		t.Fatal("expected mongo without a uri to fail")
	}
}

// TestRedisStore runs against REDIS_TEST_URL when set.
func TestRedisStore(t *testing.T) {
	rawURL := os.Getenv("REDIS_TEST_URL")
	if rawURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	prefix := fmt.Sprintf("moviefinder_test_%d:", time.Now().UnixNano())
	store, err := OpenRedisStore(context.Background(), rawURL, prefix)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)

	// Keys live under the configured prefix.
	if err := store.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set error: %v", err)
	}
	raw, err := store.client.Get(context.Background(), prefix+"k").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		t.Fatalf("raw get error: %v", err)
	}
	if raw != "v" {
		t.Fatalf("expected prefixed key, got %q", raw)
	}
	_ = store.Remove(context.Background(), "k")
	_ = store.Remove(context.Background(), "empty")
}

// TestMongoStore runs against MONGO_TEST_URI when set, in a throwaway database.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	dbName := fmt.Sprintf("moviefinder_test_%d", time.Now().UnixNano())
	store, err := OpenMongoStore(context.Background(), uri, dbName, options.Client().SetConnectTimeout(3*time.Second))
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.collection.Database().Drop(ctx)
		_ = store.Close()
	}()
	exerciseStore(t, store)
}
