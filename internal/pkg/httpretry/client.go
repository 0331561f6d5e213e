// Package httpretry wraps an HTTP client with bounded retries, exponential
// backoff, and jitter for throttled or briefly unavailable vendor APIs.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/ignite/mandrill-gateway/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultRetryableStatuses are the statuses retried when none are configured.
var DefaultRetryableStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryClient wraps an HTTPDoer with retry logic using exponential backoff and jitter.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	retryable  map[int]bool

	// networkRetry retries transport errors such as resets and client timeouts.
	networkRetry bool
}

// Option tunes a RetryClient.
type Option func(*RetryClient)

// WithDelays overrides the base and maximum backoff.
func WithDelays(base, max time.Duration) Option {
	return func(rc *RetryClient) {
		rc.baseDelay = base
		rc.maxDelay = max
	}
}

// WithRetryableStatuses replaces the set of statuses that trigger a retry.
func WithRetryableStatuses(statuses ...int) Option {
	return func(rc *RetryClient) {
		rc.retryable = make(map[int]bool, len(statuses))
		for _, s := range statuses {
			rc.retryable[s] = true
		}
	}
}

// WithoutNetworkRetry returns transport errors, including client timeouts,
// to the caller on the first failure. Use it for non-idempotent requests,
// where the server may still be acting on a request the client gave up on.
func WithoutNetworkRetry() Option {
	return func(rc *RetryClient) {
		rc.networkRetry = false
	}
}

// NewRetryClient creates a RetryClient around client.
// A nil client gets a default http.Client with a 30s timeout.
// maxRetries is the number of attempts after the first one; zero or less
// disables retrying and the client makes exactly one attempt.
func NewRetryClient(client HTTPDoer, maxRetries int, opts ...Option) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	rc := &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,

		networkRetry: true,
	}
	WithRetryableStatuses(DefaultRetryableStatuses...)(rc)
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// MaxRetries reports the configured retry budget.
func (rc *RetryClient) MaxRetries() int { return rc.maxRetries }

// Do executes the request, retrying transient network errors (unless
// disabled with WithoutNetworkRetry) and retryable statuses. Context cancellation is never retried. On the final attempt a
// retryable response is returned as-is so the caller can read the body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.calculateDelay(attempt)
			logger.Warn("httpretry: retrying request",
				"attempt", attempt,
				"max_retries", rc.maxRetries,
				"method", req.Method,
				"host", req.URL.Host,
				"path", req.URL.Path,
				"wait", delay,
			)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil || !rc.networkRetry {
				return nil, err
			}
			continue
		}

		if !rc.retryable[resp.StatusCode] || attempt == rc.maxRetries {
			return resp, nil
		}

		// drain for connection reuse
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// calculateDelay uses full jitter: random(0, min(maxDelay, baseDelay * 2^(attempt-1))),
// floored at a tenth of the base delay.
func (rc *RetryClient) calculateDelay(attempt int) time.Duration {
	expDelay := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(rc.maxDelay) {
		expDelay = float64(rc.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)
	if floor := rc.baseDelay / 10; jittered < floor {
		jittered = floor
	}
	return jittered
}
