package search

import (
	"context"
	"log/slog"
	"sync"

	"moviefinder/internal/domain"
)

// Fetcher is the network collaborator behind the search service.
type Fetcher interface {
	FetchMovies(ctx context.Context, query domain.NormalizedQuery) (domain.PaginatedResult, error)
}

// Service orchestrates searches over the result cache, the detail index and
// the Fetcher, and exposes the resulting state.
type Service struct {
	fetcher Fetcher
	results *ResultCache
	details *DetailIndex
	logger  *slog.Logger

	mu         sync.Mutex
	state      domain.SearchState
	issued     uint64
	applied    uint64
	loadingSeq uint64

	observersMu sync.Mutex
	observers   map[uint64]func(domain.SearchState)
	nextObsID   uint64
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithResultCache replaces the default unbounded result cache.
func WithResultCache(cache *ResultCache) ServiceOption {
	return func(s *Service) {
		if cache != nil {
			s.results = cache
		}
	}
}

// WithDetailIndex replaces the default unbounded detail index.
func WithDetailIndex(index *DetailIndex) ServiceOption {
	return func(s *Service) {
		if index != nil {
			s.details = index
		}
	}
}

func NewService(fetcher Fetcher, opts ...ServiceOption) *Service {
	svc := &Service{
		fetcher:   fetcher,
		results:   NewResultCache(0),
		details:   NewDetailIndex(0),
		logger:    slog.Default(),
		state:     domain.SearchState{LastQuery: domain.NormalizedQuery{Page: defaultPage}, Page: defaultPage},
		observers: make(map[uint64]func(domain.SearchState)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func (s *Service) Results() *ResultCache { return s.results }

func (s *Service) Details() *DetailIndex { return s.details }

// State returns a snapshot of the current search state.
func (s *Service) State() domain.SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to receive a state snapshot after every transition.
// The returned function removes the subscription.
func (s *Service) Subscribe(fn func(domain.SearchState)) func() {
	if fn == nil {
		return func() {}
	}
	s.observersMu.Lock()
	s.nextObsID++
	id := s.nextObsID
	s.observers[id] = fn
	s.observersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.observersMu.Lock()
			delete(s.observers, id)
			s.observersMu.Unlock()
		})
	}
}

// update applies mutate under the state lock and notifies observers with
// the resulting snapshot once the lock is released.
func (s *Service) update(mutate func(state *domain.SearchState) bool) {
	s.mu.Lock()
	changed := mutate(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if changed {
		s.notify(snapshot)
	}
}

func (s *Service) notify(snapshot domain.SearchState) {
	s.observersMu.Lock()
	observers := make([]func(domain.SearchState), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.observersMu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}
