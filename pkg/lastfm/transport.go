package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiError is the JSON body Last.fm returns for failed calls.
type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
	// maxErrorBodyBytes caps how much of an unexpected body ends up in errors.
	maxErrorBodyBytes = 256
)

// get makes a GET request to the Last.fm API and returns the raw JSON body.
//
// It handles:
// - Request construction with api_key and format=json
// - HTTP status and API error decoding
// - Optional retry with exponential backoff for temporary failures
// - Context cancellation
func (c *Client) get(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")

	reqURL := c.baseURL + "?" + query.Encode()

	var lastErr error
	backoff := 1 * time.Second
	attempts := c.maxRetries + 1

	for i := 0; i < attempts; i++ {
		c.logDebugf("lastfm: calling %s (attempt %d/%d)", method, i+1, attempts)

		body, err := c.do(ctx, reqURL)
		if err == nil {
			c.logDebugf("lastfm: %s succeeded", method)
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i == attempts-1 || !(isRetryableError(err) || shouldRetryNetworkError(err)) {
			return nil, err
		}

		c.logDebugf("lastfm: %s failed, retrying: %v", method, err)
		if !sleep(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// do performs a single request attempt.
func (c *Client) do(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Last.fm reports API errors with a JSON body, sometimes under a 200
	// and sometimes under a 4xx/5xx status.
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return nil, &Error{Code: apiErr.Code, Message: apiErr.Message}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return body, nil
}

// shouldRetryNetworkError checks if a network error is retryable.
func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential increase.
// Maximum backoff is capped at 30 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
