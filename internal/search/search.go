package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"moviefinder/internal/domain"
)

var ErrNoFetcher = errors.New("movies API is not configured")

// Search resolves raw to a paginated result, serving repeated queries from
// the result cache. A cache hit updates state without a loading transition.
// A miss performs exactly one fetch; failures are never cached and are
// returned to the caller after being recorded in State().Error.
func (s *Service) Search(ctx context.Context, raw domain.SearchParams) (domain.PaginatedResult, error) {
	query := Normalize(raw)
	key := CacheKey(query)

	var seq uint64
	s.update(func(state *domain.SearchState) bool {
		s.issued++
		seq = s.issued
		state.LastQuery = query
		return true
	})

	if cached, ok := s.results.Get(key); ok {
		s.update(func(state *domain.SearchState) bool {
			if seq <= s.applied {
				return false
			}
			s.applied = seq
			applyResult(state, cached)
			return true
		})
		return cached, nil
	}

	return s.fetch(ctx, seq, key, query)
}

func (s *Service) fetch(ctx context.Context, seq uint64, key string, query domain.NormalizedQuery) (domain.PaginatedResult, error) {
	s.update(func(state *domain.SearchState) bool {
		s.loadingSeq = seq
		state.Loading = true
		state.Error = ""
		return true
	})

	var (
		fetched  domain.PaginatedResult
		fetchErr error
		done     bool
	)
	defer func() {
		s.finishFetch(seq, fetched, fetchErr, done)
	}()

	if s.fetcher == nil {
		fetchErr = ErrNoFetcher
	} else {
		fetched, fetchErr = s.fetcher.FetchMovies(ctx, query)
	}
	if fetchErr == nil {
		fetchErr = fetched.Validate()
	}
	if fetchErr != nil {
		done = true
		s.logger.Warn("movie search failed",
			slog.String("title", truncate(query.Title, 80)),
			slog.Int("page", query.Page),
			slog.String("error", fetchErr.Error()),
		)
		return domain.PaginatedResult{}, classifyFetchError(fetchErr)
	}

	s.results.Put(key, fetched)
	s.details.Ingest(fetched.Items)
	done = true

	s.logger.Debug("movie search fetched",
		slog.String("title", truncate(query.Title, 80)),
		slog.Int("page", fetched.Page),
		slog.Int("items", len(fetched.Items)),
		slog.Int("total", fetched.Total),
	)
	return fetched.Clone(), nil
}

// finishFetch releases the loading flag held by seq and applies the outcome
// unless a later-issued search has already been applied.
func (s *Service) finishFetch(seq uint64, result domain.PaginatedResult, err error, done bool) {
	s.update(func(state *domain.SearchState) bool {
		changed := false
		if s.loadingSeq == seq && state.Loading {
			state.Loading = false
			changed = true
		}
		if !done || seq <= s.applied {
			return changed
		}
		s.applied = seq
		if err != nil {
			state.Error = err.Error()
		} else {
			applyResult(state, result)
		}
		return true
	})
}

// RefreshLastQuery drops the cache entry of the most recent query and
// re-issues it, so it always reaches the network.
func (s *Service) RefreshLastQuery(ctx context.Context) (domain.PaginatedResult, error) {
	last := s.State().LastQuery
	s.results.Invalidate(CacheKey(last))
	return s.Search(ctx, last.Params())
}

// LoadPage re-issues the most recent query with page substituted.
func (s *Service) LoadPage(ctx context.Context, page int) (domain.PaginatedResult, error) {
	last := s.State().LastQuery
	return s.Search(ctx, last.WithPage(page).Params())
}

// SearchTitle searches title starting at page, defaulting to the first page.
func (s *Service) SearchTitle(ctx context.Context, title string, page int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = defaultPage
	}
	return s.Search(ctx, domain.NewSearchParams(title, page))
}

// SetCurrentMovie marks movie as the one being viewed and indexes it.
func (s *Service) SetCurrentMovie(movie domain.Movie) {
	s.details.Put(movie)
	s.update(func(state *domain.SearchState) bool {
		current := movie
		state.Current = &current
		return true
	})
}

// ViewMovie selects the indexed movie with externalID as the current movie.
func (s *Service) ViewMovie(externalID string) (domain.Movie, bool) {
	movie, ok := s.details.Get(externalID)
	if !ok {
		return domain.Movie{}, false
	}
	s.update(func(state *domain.SearchState) bool {
		current := movie
		state.Current = &current
		return true
	})
	return movie, true
}

func (s *Service) CurrentMovie() (domain.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Current == nil {
		return domain.Movie{}, false
	}
	return *s.state.Current, true
}

func (s *Service) ClearCurrentMovie() {
	s.update(func(state *domain.SearchState) bool {
		if state.Current == nil {
			return false
		}
		state.Current = nil
		return true
	})
}

func (s *Service) MovieFromCache(externalID string) (domain.Movie, bool) {
	return s.details.Get(externalID)
}

func applyResult(state *domain.SearchState, result domain.PaginatedResult) {
	state.Results = append([]domain.Movie{}, result.Items...)
	state.Page = result.Page
	state.TotalPages = result.TotalPages
	state.Total = result.Total
}

// classifyFetchError makes sure the returned error matches one of the
// domain failure classes.
func classifyFetchError(err error) error {
	if errors.Is(err, domain.ErrNetworkFailure) || errors.Is(err, domain.ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrNetworkFailure, err)
}

// truncate trims value and shortens it to at most limit bytes without
// splitting a rune.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	suffix := "..."
	if limit <= len(suffix) {
		suffix = ""
	}
	cut := limit - len(suffix)
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + suffix
}
