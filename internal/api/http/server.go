package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"moviefinder/internal/domain"
)

// CatalogService resolves one page of the upstream movie catalog.
type CatalogService interface {
	Search(ctx context.Context, title string, page int) (domain.PaginatedResult, error)
}

type Server struct {
	catalog   CatalogService
	logger    *slog.Logger
	rateRPS   float64
	rateBurst int
}

const (
	maxTitleLength = 500

	defaultRateRPS   = 50
	defaultRateBurst = 100

	fetchFailedMessage = "Failed to fetch movies from the API"
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimit sets the global token bucket applied to API routes.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 {
			s.rateRPS = rps
		}
		if burst > 0 {
			s.rateBurst = burst
		}
	}
}

func NewServer(catalog CatalogService, options ...ServerOption) *Server {
	server := &Server{
		catalog:   catalog,
		logger:    slog.Default(),
		rateRPS:   defaultRateRPS,
		rateBurst: defaultRateBurst,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/movies", s.handleMovies)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "moviefinder",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// handleMovies proxies GET /api/movies?title=&page= to the catalog and wraps
// the page in the {success, data} envelope.
func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/movies" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "movie catalog is not configured")
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if utf8.RuneCountInString(title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "title too long (max 500 characters)")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}

	result, err := s.catalog.Search(r.Context(), title, page)
	if err != nil {
		s.logger.Warn("movie catalog request failed",
			slog.String("title", truncate(title, 80)),
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		code := "upstream_unavailable"
		if errors.Is(err, domain.ErrMalformedResponse) {
			code = "upstream_malformed"
		}
		writeError(w, http.StatusInternalServerError, code, fetchFailedMessage)
		return
	}
	if result.Items == nil {
		result.Items = []domain.Movie{}
	}

	s.logger.Debug("movie catalog request completed",
		slog.String("title", truncate(title, 80)),
		slog.Int("page", result.Page),
		slog.Int("items", len(result.Items)),
		slog.Int("total", result.Total),
	)
	writeJSON(w, http.StatusOK, domain.MoviesEnvelope{Success: true, Data: &result})
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, domain.MoviesEnvelope{
		Success: false,
		Error:   &domain.APIError{Code: code, Message: message},
	})
}
