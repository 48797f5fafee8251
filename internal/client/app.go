// Package client assembles the client-side stack: storage, the favorites
// ledger, the movies API client and the search service.
package client

import (
	"context"
	"log/slog"

	"moviefinder/internal/app"
	"moviefinder/internal/favorites"
	"moviefinder/internal/moviesapi"
	"moviefinder/internal/search"
	"moviefinder/internal/storage"
)

type App struct {
	Logger    *slog.Logger
	Store     storage.Store
	Favorites *favorites.Ledger
	Search    *search.Service
}

type Option func(*options)

type options struct {
	logger  *slog.Logger
	store   storage.Store
	fetcher search.Fetcher
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore bypasses the storage backend selected by the config.
func WithStore(store storage.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithFetcher replaces the HTTP movies API client.
func WithFetcher(fetcher search.Fetcher) Option {
	return func(o *options) {
		o.fetcher = fetcher
	}
}

// New wires the client stack from cfg and hydrates the favorites ledger. If
// the configured storage backend cannot be opened the app falls back to
// in-memory storage.
func New(ctx context.Context, cfg app.Config, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := o.store
	if store == nil {
		opened, err := storage.Open(ctx, storage.Config{
			Backend:       cfg.StorageBackend,
			BoltPath:      cfg.BoltPath,
			RedisURL:      cfg.RedisURL,
			MongoURI:      cfg.MongoURI,
			MongoDatabase: cfg.MongoDatabase,
		})
		if err != nil {
			logger.Warn("favorites storage unavailable, using in-memory storage",
				slog.String("backend", cfg.StorageBackend),
				slog.String("error", err.Error()),
			)
			opened = storage.NewMemoryStore()
		}
		store = opened
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = moviesapi.NewClient(moviesapi.Config{
			BaseURL: cfg.MoviesAPIURL,
			Timeout: cfg.MoviesAPITimeout,
		})
	}

	ledger := favorites.NewLedger(store, favorites.WithLogger(logger))
	ledger.Initialize(ctx)

	searchService := search.NewService(fetcher,
		search.WithLogger(logger),
		search.WithResultCache(search.NewResultCache(cfg.ResultCacheMax)),
		search.WithDetailIndex(search.NewDetailIndex(cfg.DetailCacheMax)),
	)

	return &App{
		Logger:    logger,
		Store:     store,
		Favorites: ledger,
		Search:    searchService,
	}
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
