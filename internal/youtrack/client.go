// Package youtrack implements a typed client for the YouTrack REST API.
//
// The package is organized as a low-level Client that owns transport
// concerns (auth, TLS, rate limiting, retries) and per-resource clients
// (IssuesClient, ProjectsClient, UsersClient, WorkItemsClient) built on
// top of it. All operations take a context.Context and return explicit
// errors; non-2xx responses surface as *APIError.
package youtrack

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/trackforge/youtrackd/internal/config"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second

	// rateBurst allows short bursts above the sustained request rate.
	rateBurst = 5
)

// Client is the low-level YouTrack REST client. It handles Bearer
// authentication, optional client-side rate limiting, and bounded
// retries with exponential backoff for transient failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// New creates a Client from the resolved configuration.
//
// The base URL is taken from cfg.BaseURL (explicit URL or one derived
// from a cloud token). Authentication uses a static Bearer token via
// oauth2. When verify_ssl is disabled the transport skips certificate
// verification, which is only appropriate for self-hosted instances
// with self-signed certificates.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.YouTrack.APIToken.IsSet() {
		return nil, fmt.Errorf("youtrack API token required")
	}

	baseURL, err := cfg.BaseURL()
	if err != nil {
		return nil, err
	}

	base := &http.Client{Timeout: defaultTimeout}
	if !cfg.YouTrack.VerifySSL.Bool() {
		base.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.YouTrack.APIToken.Value()})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = defaultTimeout

	maxRetries := cfg.YouTrack.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.YouTrack.RetryDelay.Duration()
	if retryDelay <= 0 {
		retryDelay = defaultBaseDelay
	}

	var limiter *rate.Limiter
	if cfg.YouTrack.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.YouTrack.RateLimit), rateBurst)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    limiter,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// BaseURL returns the REST API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request against the API and decodes the JSON
// response into out. A nil out discards the body.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response
// into out.
func (c *Client) Post(ctx context.Context, path string, params url.Values, body, out any) error {
	return c.do(ctx, http.MethodPost, path, params, body, out)
}

// Delete issues a DELETE request against the API.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do runs a request with rate limiting and bounded retries. Transient
// failures (429, 5xx, transport errors) are retried with exponential
// backoff; everything else returns immediately.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doRequest(ctx, method, path, params, body, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("youtrack request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &retryableError{err: newAPIError(resp.StatusCode, data)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Download fetches a raw resource, typically an attachment, from an
// absolute URL on the YouTrack host. It bypasses JSON decoding but
// shares auth, rate limiting, and retry behavior with the API calls.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, err := c.download(ctx, rawURL)
		if err == nil {
			return data, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("download failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &retryableError{err: newAPIError(resp.StatusCode, data)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}
