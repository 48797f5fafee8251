package moviesapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"moviefinder/internal/domain"
)

const (
	defaultBaseURL = "http://localhost:8090"
	moviesPath     = "/api/movies"
	maxBodyBytes   = 1 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client calls GET /api/movies on the moviefinder server. It makes exactly
// one attempt per call.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// FetchMovies returns the page described by query. Transport failures,
// non-2xx statuses and unsuccessful envelopes wrap domain.ErrNetworkFailure;
// bodies that cannot be decoded or fail validation wrap
// domain.ErrMalformedResponse.
func (c *Client) FetchMovies(ctx context.Context, query domain.NormalizedQuery) (domain.PaginatedResult, error) {
	params := url.Values{
		"title": {query.Title},
		"page":  {strconv.Itoa(query.Page)},
	}
	reqURL := c.baseURL + moviesPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("%w: build request: %v", domain.ErrNetworkFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("%w: read body: %v", domain.ErrNetworkFailure, err)
	}

	var envelope domain.MoviesEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		if decodeErr == nil && envelope.Error != nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		if len(message) > 200 {
			message = message[:200]
		}
		return domain.PaginatedResult{}, fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetworkFailure, resp.StatusCode, message)
	}
	if decodeErr != nil {
		return domain.PaginatedResult{}, fmt.Errorf("%w: decode body: %v", domain.ErrMalformedResponse, decodeErr)
	}
	if !envelope.Success {
		message := "request was not successful"
		if envelope.Error != nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return domain.PaginatedResult{}, fmt.Errorf("%w: %s", domain.ErrNetworkFailure, message)
	}
	if envelope.Data == nil {
		return domain.PaginatedResult{}, fmt.Errorf("%w: missing data", domain.ErrMalformedResponse)
	}
	if err := envelope.Data.Validate(); err != nil {
		return domain.PaginatedResult{}, err
	}
	return *envelope.Data, nil
}
