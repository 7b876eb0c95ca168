// Package client provides the Freshservice HTTP client with authentication,
// rate limit gating, and typed upstream errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
	"github.com/Sternrassler/freshservice-mcp/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Freshservice client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshservice_requests_total",
		Help: "Total Freshservice requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freshservice_request_duration_seconds",
		Help:    "Freshservice request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshservice_errors_total",
		Help: "Total Freshservice errors by class",
	}, []string{"class"})
)

var idSegment = regexp.MustCompile(`/\d+`)

// Client is the Freshservice API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	baseURL     string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Domain is the Freshservice host, e.g. "acme.freshservice.com".
	Domain string

	// APIKey authenticates as "<key>:X" over HTTP Basic auth.
	APIKey string

	// BaseURL overrides https://<Domain>/api/v2 (for testing).
	BaseURL string

	// UserAgent is sent on every request.
	UserAgent string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// RateLimiter gates requests on the upstream budget. An in-memory
	// tracker is used when nil.
	RateLimiter *ratelimit.Tracker
}

// DefaultConfig returns a configuration with safe defaults.
func DefaultConfig(domain, apiKey string) Config {
	return Config{
		Domain:    domain,
		APIKey:    apiKey,
		UserAgent: "freshservice-mcp/dev",
		Timeout:   30 * time.Second,
	}
}

// New creates a new Freshservice client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	base := cfg.BaseURL
	if base == "" {
		if cfg.Domain == "" {
			return nil, fmt.Errorf("domain is required")
		}
		domain := strings.TrimPrefix(strings.TrimPrefix(cfg.Domain, "https://"), "http://")
		base = "https://" + strings.TrimSuffix(domain, "/") + "/api/v2"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "freshservice-client").Logger()

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimiter = ratelimit.NewTracker(nil, logger)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rateLimiter,
		baseURL:     strings.TrimSuffix(base, "/"),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Response is a successful Freshservice response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// JSON returns the body as raw JSON; empty bodies (204) become null.
func (r *Response) JSON() json.RawMessage {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(r.Body)
}

// Do performs a Freshservice request. path is relative to /api/v2 and body,
// when non-nil, is sent as JSON. Any non-2xx status is returned as *APIError.
// Requests are never retried.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	endpoint := normalizeEndpoint(path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, &APIError{
			StatusCode: http.StatusTooManyRequests,
			Class:      ErrorClassRateLimit,
			Message:    "rate limit budget exhausted",
			Err:        ErrRateLimited,
		}
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing Freshservice request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Freshservice request error")

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    upstreamMessage(resp.Status, payload),
		}
		if len(payload) > 0 {
			if json.Valid(payload) {
				apiErr.Body = json.RawMessage(payload)
			} else if quoted, err := json.Marshal(string(payload)); err == nil {
				apiErr.Body = quoted
			}
		}
		return nil, apiErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		target += "?" + EncodeQuery(query)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.SetBasicAuth(c.config.APIKey, "X")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	return req, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// FetchPage implements pagination.PageFetcher. Plain listings request
// per_page=30; filter queries are sent double quoted as Freshservice expects.
func (c *Client) FetchPage(ctx context.Context, req pagination.Request, page int) (*pagination.Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if req.Query != "" {
		query.Set("query", `"`+req.Query+`"`)
	} else {
		query.Set("per_page", strconv.Itoa(pagination.PageSize))
	}
	for k, v := range req.Params {
		query.Set(k, v)
	}

	resp, err := c.Get(ctx, req.Collection, query)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := resp.Decode(&envelope); err != nil {
		return nil, err
	}

	out := &pagination.Page{Link: resp.Header.Get("Link")}
	raw, ok := envelope[req.Key]
	if !ok || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out.Items); err != nil {
		return nil, fmt.Errorf("decode %q items: %w", req.Key, err)
	}
	return out, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// EncodeQuery encodes query parameters with %20 for spaces; Freshservice
// filter expressions do not accept "+".
func EncodeQuery(v url.Values) string {
	return strings.ReplaceAll(v.Encode(), "+", "%20")
}

// normalizeEndpoint collapses numeric ids so metrics keep a bounded label set.
func normalizeEndpoint(path string) string {
	p := "/" + strings.TrimPrefix(path, "/")
	return idSegment.ReplaceAllString(p, "/:id")
}

// IsAPIError reports whether err carries an *APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
