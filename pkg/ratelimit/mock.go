package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// MockRateLimiter is a RateLimiter test double that records calls
type MockRateLimiter struct {
	mu sync.Mutex

	WaitFunc           func(ctx context.Context) error
	HandleResponseFunc func(response *http.Response) error
	AcquireSlotFunc    func(ctx context.Context) error

	WaitCalls           int
	HandleResponseCalls []*http.Response
	AcquireSlotCalls    int
	ReleaseSlotCalls    int
}

// NewMockRateLimiter creates a mock that lets every request through
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

// Wait implements RateLimiter
func (m *MockRateLimiter) Wait(ctx context.Context) error {
	m.mu.Lock()
	m.WaitCalls++
	fn := m.WaitFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// HandleResponse implements RateLimiter
func (m *MockRateLimiter) HandleResponse(response *http.Response) error {
	m.mu.Lock()
	m.HandleResponseCalls = append(m.HandleResponseCalls, response)
	fn := m.HandleResponseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(response)
	}
	return nil
}

// AcquireSlot implements RateLimiter
func (m *MockRateLimiter) AcquireSlot(ctx context.Context) error {
	m.mu.Lock()
	m.AcquireSlotCalls++
	fn := m.AcquireSlotFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// ReleaseSlot implements RateLimiter
func (m *MockRateLimiter) ReleaseSlot() {
	m.mu.Lock()
	m.ReleaseSlotCalls++
	m.mu.Unlock()
}

// Counts returns a consistent snapshot of wait, acquire and release calls
func (m *MockRateLimiter) Counts() (wait, acquire, release int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WaitCalls, m.AcquireSlotCalls, m.ReleaseSlotCalls
}

// SetRateLimitError makes HandleResponse report 429 responses as RateLimitError
func (m *MockRateLimiter) SetRateLimitError(retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandleResponseFunc = func(response *http.Response) error {
		if response != nil && response.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{
				StatusCode: http.StatusTooManyRequests,
				RetryAfter: retryAfter,
				Message:    "mock rate limit exceeded",
			}
		}
		return nil
	}
}
