package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"uploadai/internal/logging"
	"uploadai/internal/services"
)

const (
	defaultBaseURL        = "http://localhost:3333"
	defaultUserAgent      = "uploadai/dev"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second

	requestIDHeader = "X-Request-ID"
)

// Config captures the settings required to reach the backend.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
	UserAgent      string
}

// Client talks to the upload.ai backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	retry        retryPolicy
	sleeper      func(time.Duration)
	newRequestID func() string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The client should not set
// a global Timeout, since that would cut completion streams short.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryMaxAttempts overrides the retry count for idempotent requests (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.baseDelay = baseDelay
		c.retry.maxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithRequestIDGenerator overrides X-Request-ID generation.
func WithRequestIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}

// NewClient constructs a backend client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
			UserAgent:      strings.TrimSpace(cfg.UserAgent),
		},
		httpClient:   &http.Client{},
		timeout:      timeout,
		logger:       logging.NewNop(),
		retry:        defaultRetryPolicy(),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.UserAgent == "" {
		client.cfg.UserAgent = defaultUserAgent
	}
	return client
}

// BaseURL returns the backend root the client targets.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

func (c *Client) endpoint(segments ...string) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, segments...)
	if err != nil {
		return "", fmt.Errorf("api: build url: %w", err)
	}
	return endpoint, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("api: new request: %w", err)
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = c.newRequestID()
	}
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("api: encode body: %w", err)
	}
	req, err := c.newRequest(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and returns the full body for 2xx responses.
func (c *Client) do(req *http.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(req, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: read body (timeout=%s): %w", req.Method, req.URL.Path, c.timeout, err)
	}
	c.logger.Debug("backend request",
		logging.String("method", req.Method),
		logging.String("path", req.URL.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldCorrelationID, req.Header.Get(requestIDHeader)),
	)
	if err := checkStatus(req, resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) transportError(req *http.Request, err error) error {
	if ctxErr := req.Context().Err(); ctxErr == context.DeadlineExceeded {
		return services.Wrap(services.ErrTimeout, "api", req.Method+" "+req.URL.Path, fmt.Sprintf("no response within %s", c.timeout), err)
	}
	return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
}

func checkStatus(req *http.Request, resp *http.Response, body []byte) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
	return &StatusError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
		Body:       truncateBody(body),
		RetryAfter: retryAfter,
	}
}
