package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chambrid/jira-timelog/pkg/config"
	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting operations
// This enables dependency injection and testing with mock implementations
type RateLimiter interface {
	// Wait blocks until it's safe to make a request based on rate limiting rules
	Wait(ctx context.Context) error

	// HandleResponse processes response headers to adjust rate limiting behavior
	HandleResponse(response *http.Response) error

	// AcquireSlot attempts to acquire a concurrency slot for parallel requests
	AcquireSlot(ctx context.Context) error

	// ReleaseSlot releases a concurrency slot
	ReleaseSlot()
}

// APIRateLimiter paces outbound Atlassian calls with a token bucket, a concurrency
// semaphore and a backoff window opened by 429 responses. It never retries.
type APIRateLimiter struct {
	config  *config.Config
	limiter *rate.Limiter

	mutex             sync.Mutex
	consecutiveErrors int
	backoffUntil      time.Time

	semaphore chan struct{}
}

// NewRateLimiter creates a new rate limiter with the provided configuration
func NewRateLimiter(cfg *config.Config) RateLimiter {
	limit := rate.Inf
	if cfg.RateLimitDelay > 0 {
		limit = rate.Every(cfg.RateLimitDelay)
	}

	slots := cfg.MaxConcurrentRequests
	if slots < 1 {
		slots = 1
	}

	return &APIRateLimiter{
		config:    cfg,
		limiter:   rate.NewLimiter(limit, 1),
		semaphore: make(chan struct{}, slots),
	}
}

// Wait blocks until the backoff window has passed and a token is available
func (r *APIRateLimiter) Wait(ctx context.Context) error {
	r.mutex.Lock()
	backoffUntil := r.backoffUntil
	r.mutex.Unlock()

	if wait := time.Until(backoffUntil); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// HandleResponse processes response headers to adjust rate limiting behavior
func (r *APIRateLimiter) HandleResponse(response *http.Response) error {
	if response == nil {
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if response.StatusCode == http.StatusTooManyRequests {
		r.consecutiveErrors++

		backoffDelay := r.calculateBackoffDelay()
		r.backoffUntil = time.Now().Add(backoffDelay)

		// Atlassian sends Retry-After in seconds
		if retryAfterStr := response.Header.Get("Retry-After"); retryAfterStr != "" {
			if retryAfter, err := strconv.Atoi(retryAfterStr); err == nil {
				suggestedDelay := time.Duration(retryAfter) * time.Second
				if suggestedDelay > backoffDelay {
					r.backoffUntil = time.Now().Add(suggestedDelay)
				}
			}
		}

		return &RateLimitError{
			StatusCode: response.StatusCode,
			RetryAfter: time.Until(r.backoffUntil),
			Message:    "rate limit exceeded, backing off",
		}
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		r.consecutiveErrors = 0
	}

	return nil
}

// AcquireSlot attempts to acquire a concurrency slot
func (r *APIRateLimiter) AcquireSlot(ctx context.Context) error {
	select {
	case r.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReleaseSlot releases a concurrency slot
func (r *APIRateLimiter) ReleaseSlot() {
	select {
	case <-r.semaphore:
	default:
	}
}

// calculateBackoffDelay returns base * 2^(errors-1), capped at MaxBackoffDelay
func (r *APIRateLimiter) calculateBackoffDelay() time.Duration {
	if r.consecutiveErrors <= 0 {
		return 0
	}

	exponent := float64(r.consecutiveErrors - 1)
	multiplier := math.Pow(2, exponent)

	delay := time.Duration(float64(r.config.ExponentialBackoffBase) * multiplier)
	if delay > r.config.MaxBackoffDelay {
		delay = r.config.MaxBackoffDelay
	}

	return delay
}

// RateLimitError represents a rate limiting error
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit error (HTTP %d): %s (retry after %v)",
		e.StatusCode, e.Message, e.RetryAfter)
}

// IsRateLimitError checks if err or anything it wraps is a rate limit error
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}
