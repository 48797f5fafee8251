// Package favorites keeps the user's deduplicated list of favorite movies and
// mirrors it to a key/value store after every change.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"moviefinder/internal/domain"
	"moviefinder/internal/metrics"
)

// StorageKey is the key the favorites list is persisted under.
const StorageKey = "movie-favorites"

// Store is the subset of storage.Store the ledger needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock overrides the time source used to stamp new favorites.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger is safe for concurrent use; every operation, including storage
// I/O, runs under a single mutex.
type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	items      []domain.FavoriteMovie
	index      map[string]int
	hydrated   bool
	storageErr error
}

// NewLedger returns an empty ledger. With a nil store the ledger never
// hydrates and never persists.
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		index:  make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Initialize hydrates the ledger from storage the first time it is called.
// Later calls are no-ops.
func (l *Ledger) Initialize(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hydrated {
		l.hydrateLocked(ctx)
	}
}

// Hydrate replaces the in-memory list with the stored one. A missing or
// unreadable value leaves the ledger empty.
func (l *Ledger) Hydrate(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hydrateLocked(ctx)
}

func (l *Ledger) IsFavorited(movie domain.Movie) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.index[key(movie.ExternalID)]
	return ok
}

// Get returns the favorite with externalID.
func (l *Ledger) Get(externalID string) (domain.FavoriteMovie, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.index[key(externalID)]
	if !ok {
		return domain.FavoriteMovie{}, false
	}
	return l.items[pos], true
}

// Add appends movie stamped with the current time unless it is already a
// favorite. Movies without an external id are ignored.
func (l *Ledger) Add(ctx context.Context, movie domain.Movie) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureHydratedLocked(ctx)
	if l.addLocked(movie) {
		l.persistLocked(ctx)
	}
}

func (l *Ledger) Remove(ctx context.Context, movie domain.Movie) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureHydratedLocked(ctx)
	if l.removeLocked(movie.ExternalID) {
		l.persistLocked(ctx)
	}
}

// Toggle removes movie if it is a favorite and adds it otherwise. It reports
// whether movie is a favorite afterwards.
func (l *Ledger) Toggle(ctx context.Context, movie domain.Movie) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureHydratedLocked(ctx)
	if _, ok := l.index[key(movie.ExternalID)]; ok {
		l.removeLocked(movie.ExternalID)
		l.persistLocked(ctx)
		return false
	}
	if !l.addLocked(movie) {
		return false
	}
	l.persistLocked(ctx)
	return true
}

func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureHydratedLocked(ctx)
	l.items = nil
	l.index = make(map[string]int)
	l.persistLocked(ctx)
}

// Favorites returns a copy in insertion order.
func (l *Ledger) Favorites() []domain.FavoriteMovie {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.FavoriteMovie(nil), l.items...)
}

func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// SortedByMostRecent returns a copy ordered by FavoritedAt, newest first.
// Equal timestamps keep insertion order.
func (l *Ledger) SortedByMostRecent() []domain.FavoriteMovie {
	items := l.Favorites()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FavoritedAt.After(items[j].FavoritedAt)
	})
	return items
}

// Persist writes the current list to storage.
// StorageErr returns the failure of the most recent load or save, or nil if
// it succeeded. Failures match domain.ErrStorageFailure.
func (l *Ledger) StorageErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.storageErr
}

func (l *Ledger) Persist(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.persistLocked(ctx)
}

func (l *Ledger) ensureHydratedLocked(ctx context.Context) {
	if l.store != nil && !l.hydrated {
		l.hydrateLocked(ctx)
	}
}

func (l *Ledger) hydrateLocked(ctx context.Context) {
	if l.store == nil {
		return
	}
	l.hydrated = true
	l.items = nil
	l.index = make(map[string]int)

	raw, ok, err := l.store.Get(ctx, StorageKey)
	if err != nil {
		l.storageFailedLocked("load", err)
		return
	}
	l.storageErr = nil
	if !ok {
		return
	}
	items, err := decodeFavorites(raw)
	if err != nil {
		l.logger.Warn("favorites record unreadable, starting empty", slog.String("error", err.Error()))
		return
	}
	for _, item := range items {
		l.index[item.ExternalID] = len(l.items)
		l.items = append(l.items, item)
	}
	l.logger.Debug("favorites hydrated", slog.Int("count", len(l.items)))
}

func (l *Ledger) persistLocked(ctx context.Context) {
	if l.store == nil {
		return
	}
	value, err := encodeFavorites(l.items)
	if err != nil {
		l.storageFailedLocked("save", err)
		return
	}
	if err := l.store.Set(ctx, StorageKey, value); err != nil {
		l.storageFailedLocked("save", err)
		return
	}
	l.storageErr = nil
}

func (l *Ledger) storageFailedLocked(op string, err error) {
	l.storageErr = fmt.Errorf("%w: favorites %s: %w", domain.ErrStorageFailure, op, err)
	metrics.FavoritesStorageFailuresTotal.WithLabelValues(op).Inc()
	l.logger.Warn("favorites storage failed",
		slog.String("op", op),
		slog.Int("count", len(l.items)),
		slog.String("error", l.storageErr.Error()),
	)
}

func (l *Ledger) addLocked(movie domain.Movie) bool {
	id := key(movie.ExternalID)
	if id == "" {
		l.logger.Debug("favorite without external id ignored", slog.String("title", movie.Title))
		return false
	}
	if _, ok := l.index[id]; ok {
		return false
	}
	movie.ExternalID = id
	l.index[id] = len(l.items)
	l.items = append(l.items, domain.FavoriteMovie{
		Movie:       movie,
		FavoritedAt: l.now().UTC().Truncate(time.Millisecond),
	})
	return true
}

func (l *Ledger) removeLocked(externalID string) bool {
	id := key(externalID)
	pos, ok := l.index[id]
	if !ok {
		return false
	}
	l.items = append(l.items[:pos], l.items[pos+1:]...)
	delete(l.index, id)
	for i := pos; i < len(l.items); i++ {
		l.index[l.items[i].ExternalID] = i
	}
	return true
}

func key(externalID string) string {
	return strings.TrimSpace(externalID)
}
