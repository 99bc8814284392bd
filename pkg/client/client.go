// Package client provides the estimating-API HTTP client with batched
// dispatch, transient-failure retry, and response classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/gradeworks/estimate-sync/pkg/logging"
	"github.com/gradeworks/estimate-sync/pkg/notify"
)

// Prometheus metrics for remote API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimate_sync_requests_total",
		Help: "Total remote API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "estimate_sync_request_duration_seconds",
		Help:    "Remote API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estimate_sync_batches_total",
		Help: "Total dispatched batch groups",
	})

	apiRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estimate_sync_transient_retries_total",
		Help: "Total requests re-queued after a transient failure",
	})

	apiRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "estimate_sync_retry_backoff_seconds",
		Help:    "Backoff duration before transient retry rounds",
		Buckets: []float64{1, 4, 9, 16, 25},
	})

	apiRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estimate_sync_retry_exhausted_total",
		Help: "Total requests whose transient retries were exhausted",
	})
)

// DefaultTenantRef is the documented placeholder scope attached to every
// payload and filter when no per-customer estimate identifier applies.
var DefaultTenantRef = uuid.Nil.String()

// Config holds the client configuration. It is immutable once passed to New;
// tests override batch size and retry behavior here instead of touching
// globals.
type Config struct {
	// BaseURL is the remote service root, e.g. "https://host/api".
	BaseURL string

	// Token is the bearer token obtained from the login endpoint.
	Token string

	// Tenant-scoped headers sent with every write call.
	ClientID         string
	ClientSecret     string
	ConnectionString string

	// TenantRef is the EstimateREF marker attached to every payload and
	// filter. Defaults to DefaultTenantRef; must parse as a UUID.
	TenantRef string

	// BatchSize is the maximum number of requests per dispatched group.
	BatchSize int

	// BatchPause is the throttling delay between groups. No pause happens
	// before the first group or after the last.
	BatchPause time.Duration

	// MaxRetryDepth is the transient-failure retry ceiling.
	MaxRetryDepth int

	// RetryBackoffUnit scales the depth-squared backoff (depth² × unit).
	RetryBackoffUnit time.Duration

	// TransientStatus and TransientMarker identify the remote service's
	// "connection pool exhausted" signature. Matching responses are retried;
	// every other status is final.
	TransientStatus int
	TransientMarker string

	// Notifier receives batch progress and retry notifications.
	Notifier notify.Notifier

	// HTTPClient overrides the transport (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration for a base URL and
// bearer token.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:          baseURL,
		Token:            token,
		TenantRef:        DefaultTenantRef,
		BatchSize:        50,
		BatchPause:       1 * time.Second,
		MaxRetryDepth:    5,
		RetryBackoffUnit: 1 * time.Second,
		TransientStatus:  http.StatusInternalServerError,
		TransientMarker:  "Connection Timeout Expired.",
	}
}

// Client is the remote estimating API client.
type Client struct {
	httpClient *http.Client
	config     Config
	notifier   notify.Notifier
	logger     zerolog.Logger

	// sleep is replaced in tests to observe throttling without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if cfg.TenantRef == "" {
		cfg.TenantRef = DefaultTenantRef
	}
	if _, err := uuid.Parse(cfg.TenantRef); err != nil {
		return nil, fmt.Errorf("tenant ref %q is not a valid UUID: %w", cfg.TenantRef, err)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive (got %d)", cfg.BatchSize)
	}
	if cfg.MaxRetryDepth < 0 {
		return nil, fmt.Errorf("max retry depth must be >= 0 (got %d)", cfg.MaxRetryDepth)
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		notifier:   notifier,
		logger:     logging.NewLogger("api-client"),
		sleep:      wait,
	}, nil
}

// TenantRef returns the configured tenant marker.
func (c *Client) TenantRef() string {
	return c.config.TenantRef
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// headers builds the write-call header set: bearer auth plus the
// tenant-scoped connection headers.
func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.config.Token)
	h.Set("Content-Type", "application/json")
	if c.config.ClientID != "" {
		h.Set("ClientID", c.config.ClientID)
	}
	if c.config.ClientSecret != "" {
		h.Set("ClientSecret", c.config.ClientSecret)
	}
	if c.config.ConnectionString != "" {
		h.Set("ConnectionString", c.config.ConnectionString)
	}
	return h
}

// Get performs a single GET against a path (plus query) relative to the base
// URL. List-style callers interpret the status themselves.
func (c *Client) Get(ctx context.Context, pathAndQuery string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.headers()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	apiRequestDuration.WithLabelValues(req.URL.Path).Observe(time.Since(start).Seconds())
	if err != nil {
		apiRequestsTotal.WithLabelValues(req.URL.Path, "network_error").Inc()
		return nil, err
	}
	apiRequestsTotal.WithLabelValues(req.URL.Path, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	return resp, nil
}

// buildRequest materializes a Request into an *http.Request with the JSON
// body and write headers attached.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body *bytes.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body for %s: %w", req.Path, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.config.BaseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", req.Path, err)
	}
	httpReq.Header = c.headers()
	return httpReq, nil
}

// wait blocks for d or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
