package eppo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://eppo.cloud"
	// metricsSyncEndpoint receives the bulk sync document.
	metricsSyncEndpoint = "/api/v1/metrics/sync"

	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	// responseSnippetLimit caps how much of an error body is carried in errors.
	responseSnippetLimit = 1000
)

// RemoteSyncError reports a failed submission to the sync endpoint.
type RemoteSyncError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteSyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("metrics sync request failed: %v", e.Err)
	}
	msg := fmt.Sprintf("metrics sync request failed with status %d", e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *RemoteSyncError) Unwrap() error { return e.Err }

// Client talks to the metrics sync API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
	logger     *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n uint64) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a sync client. The API key is required.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sync submits the validated document to the metrics sync endpoint.
// Responses indicating a transient condition (429, 5xx) are retried with
// exponential backoff; authentication and validation failures are fatal and
// reported verbatim.
func (c *Client) Sync(ctx context.Context, payload *SyncPayload) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync payload: %w", err)
	}

	url := c.baseURL + metricsSyncEndpoint
	c.logger.Info("submitting metrics sync document",
		"url", url,
		"fact_sources", len(payload.FactSources),
		"metrics", len(payload.Metrics))

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(time.Second))

	var result map[string]any
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, attemptErr := c.post(ctx, url, body)
		if attemptErr != nil {
			return attemptErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("X-Eppo-Token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are transient by definition.
		return nil, retry.RetryableError(&RemoteSyncError{Err: err})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, retry.RetryableError(&RemoteSyncError{Err: err})
	}

	if resp.StatusCode >= 400 {
		syncErr := &RemoteSyncError{
			StatusCode: resp.StatusCode,
			Body:       snippet(respBody),
		}
		if transient(resp.StatusCode) {
			c.logger.Warn("transient sync failure, will retry", "status", resp.StatusCode)
			return nil, retry.RetryableError(syncErr)
		}
		return nil, syncErr
	}

	if len(respBody) == 0 || resp.StatusCode == http.StatusNoContent {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &RemoteSyncError{
			StatusCode: resp.StatusCode,
			Body:       snippet(respBody),
			Err:        fmt.Errorf("failed to decode response JSON: %w", err),
		}
	}
	return result, nil
}

func transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > responseSnippetLimit {
		return s[:responseSnippetLimit]
	}
	return s
}
