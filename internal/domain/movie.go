package domain

import (
	"fmt"
	"strings"
	"time"
)

// Movie is a catalog entry as returned by the movies API. ExternalID (the
// IMDb id) is the stable identity; ID is only an ordinal within the catalog.
type Movie struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	ExternalID string `json:"imdbID"`
}

type FavoriteMovie struct {
	Movie
	FavoritedAt time.Time `json:"favoritedAt"`
}

type PaginatedResult struct {
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Items      []Movie `json:"data"`
}

// MoviesEnvelope is the body of GET /api/movies.
type MoviesEnvelope struct {
	Success bool             `json:"success"`
	Data    *PaginatedResult `json:"data,omitempty"`
	Error   *APIError        `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate reports a shape violation as ErrMalformedResponse.
func (r PaginatedResult) Validate() error {
	if r.Total < 0 {
		return fmt.Errorf("%w: negative total %d", ErrMalformedResponse, r.Total)
	}
	if r.TotalPages < 0 {
		return fmt.Errorf("%w: negative total_pages %d", ErrMalformedResponse, r.TotalPages)
	}
	if r.PerPage < 0 {
		return fmt.Errorf("%w: negative per_page %d", ErrMalformedResponse, r.PerPage)
	}
	if r.PerPage > 0 && len(r.Items) > r.PerPage {
		return fmt.Errorf("%w: %d items exceed per_page %d", ErrMalformedResponse, len(r.Items), r.PerPage)
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.ExternalID) == "" {
			return fmt.Errorf("%w: item %d has no imdbID", ErrMalformedResponse, i)
		}
	}
	return nil
}

func (r PaginatedResult) Clone() PaginatedResult {
	cloned := r
	if r.Items != nil {
		cloned.Items = append([]Movie(nil), r.Items...)
	}
	return cloned
}
