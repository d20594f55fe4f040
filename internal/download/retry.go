// retry.go retries transient API failures and stops once the API keeps
// failing.
package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrCircuitOpen is returned once too many consecutive requests have failed.
var ErrCircuitOpen = errors.New("too many consecutive API failures")

// CircuitBreaker trips after consecutive transient failures. It is shared
// by all requests of a client, including concurrent ones.
type CircuitBreaker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	threshold           int
	open                bool
}

// NewCircuitBreaker creates a circuit breaker with the given threshold.
func NewCircuitBreaker(threshold int) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5 // default
	}
	return &CircuitBreaker{threshold: threshold}
}

// RecordFailure increments the failure counter.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.threshold {
		cb.open = true
	}
}

// RecordSuccess resets the failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.open = false
}

// Open reports whether the threshold was reached.
func (cb *CircuitBreaker) Open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}

// ConsecutiveFailures returns the current failure count.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFailures
}

// StatusError is a response with an unexpected HTTP status.
type StatusError struct {
	URL    string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s: %s", e.URL, e.Status, e.Body)
}

// transient reports whether a failed request may succeed when repeated:
// rate limiting, server errors and network failures.
func transient(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// getWithRetry performs get, retrying transient failures with exponential
// backoff up to c.Retries times.
func (c *Client) getWithRetry(ctx context.Context, u string, v any) error {
	backoff := c.RetryBackoff
	for attempt := 0; ; attempt++ {
		if c.Breaker != nil && c.Breaker.Open() {
			return ErrCircuitOpen
		}

		err := c.get(ctx, u, v)
		if err == nil {
			if c.Breaker != nil {
				c.Breaker.RecordSuccess()
			}
			return nil
		}
		if ctx.Err() != nil || !transient(err) {
			return err
		}
		if c.Breaker != nil {
			c.Breaker.RecordFailure()
		}
		if attempt >= c.Retries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
