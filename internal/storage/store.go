// Package storage provides the key/value persistence used by the favorites
// ledger. Values are opaque strings; absence is reported as ok=false.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

type Config struct {
	Backend       string
	BoltPath      string
	RedisURL      string
	RedisPrefix   string
	MongoURI      string
	MongoDatabase string
}

// Open builds the Store selected by cfg.Backend. An empty backend selects
// the in-memory store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendBolt:
		store, err = OpenBoltStore(cfg.BoltPath)
	case BackendRedis:
		store, err = OpenRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case BackendMongo:
		store, err = OpenMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, options.Client().SetMonitor(otelmongo.NewMonitor()))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}
	return store, nil
}
