package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"moviefinder/internal/domain"
	"moviefinder/internal/metrics"
)

const (
	defaultEndpoint  = "https://jsonmock.hackerrank.com/api/movies/search"
	defaultUserAgent = "moviefinder-catalog/1.0"
	maxBodyBytes     = 1 << 20
)

// StatusError is an upstream answer with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the upstream may answer differently on retry.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
	Retry     RetryConfig
	Logger    *slog.Logger
}

// Client queries the upstream movie catalog and reshapes its answers into
// domain.PaginatedResult.
type Client struct {
	client    *http.Client
	endpoint  string
	userAgent string
	retry     RetryConfig
	logger    *slog.Logger
	group     singleflight.Group
}

type upstreamPage struct {
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Data       []upstreamMovie `json:"data"`
}

type upstreamMovie struct {
	ID     int    `json:"id"`
	Title  string `json:"Title"`
	Year   int    `json:"Year"`
	IMDbID string `json:"imdbID"`
}

func NewClient(cfg Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		retry:     retry,
		logger:    logger,
	}
}

// Search returns one page of catalog movies whose title contains title.
// An empty title lists the whole catalog. Identical concurrent calls share
// a single upstream request; the shared request is not tied to any one
// caller's context, and each caller stops waiting when its own ctx is done.
func (c *Client) Search(ctx context.Context, title string, page int) (domain.PaginatedResult, error) {
	title = strings.TrimSpace(title)
	if page <= 0 {
		page = 1
	}
	key := title + "\x00" + strconv.Itoa(page)

	sharedCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		var result domain.PaginatedResult
		retryErr := RetryWithBackoff(sharedCtx, c.retry, func() error {
			var fetchErr error
			result, fetchErr = c.fetchPage(sharedCtx, title, page)
			return fetchErr
		})
		return result, retryErr
	})

	select {
	case <-ctx.Done():
		return domain.PaginatedResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.PaginatedResult{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("catalog request shared", slog.String("title", title), slog.Int("page", page))
		}
		result := res.Val.(domain.PaginatedResult)
		return result.Clone(), nil
	}
}

func (c *Client) fetchPage(ctx context.Context, title string, page int) (domain.PaginatedResult, error) {
	started := time.Now()
	result, status, err := c.doFetch(ctx, title, page)
	metrics.UpstreamRequestDuration.Observe(time.Since(started).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(status).Inc()
	if err != nil {
		c.logger.Warn("catalog upstream request failed",
			slog.String("title", title),
			slog.Int("page", page),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
	return result, err
}

func (c *Client) doFetch(ctx context.Context, title string, page int) (domain.PaginatedResult, string, error) {
	reqURL, err := c.buildURL(title, page)
	if err != nil {
		return domain.PaginatedResult{}, "error", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.PaginatedResult{}, "error", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.PaginatedResult{}, "transport_error", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.PaginatedResult{}, strconv.Itoa(resp.StatusCode), &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.PaginatedResult{}, "transport_error", err
	}
	result, err := parsePage(body, page)
	if err != nil {
		return domain.PaginatedResult{}, "decode_error", err
	}
	return result, "ok", nil
}

func (c *Client) buildURL(title string, page int) (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse catalog endpoint: %w", err)
	}
	params := parsed.Query()
	if title != "" {
		params.Set("Title", title)
	}
	params.Set("page", strconv.Itoa(page))
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}

// parsePage decodes an upstream page. Items without an upstream id get their
// 1-based position in the catalog listing.
func parsePage(body []byte, requestedPage int) (domain.PaginatedResult, error) {
	var payload upstreamPage
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("%w: decode upstream page: %v", domain.ErrMalformedResponse, err)
	}
	page := payload.Page
	if page <= 0 {
		page = requestedPage
	}
	perPage := payload.PerPage
	if perPage <= 0 {
		perPage = len(payload.Data)
	}

	items := make([]domain.Movie, 0, len(payload.Data))
	for i, item := range payload.Data {
		id := item.ID
		if id <= 0 {
			id = (page-1)*perPage + i + 1
		}
		items = append(items, domain.Movie{
			ID:         id,
			Title:      strings.TrimSpace(item.Title),
			Year:       item.Year,
			ExternalID: strings.TrimSpace(item.IMDbID),
		})
	}
	return domain.PaginatedResult{
		Page:       page,
		PerPage:    payload.PerPage,
		Total:      payload.Total,
		TotalPages: payload.TotalPages,
		Items:      items,
	}, nil
}
