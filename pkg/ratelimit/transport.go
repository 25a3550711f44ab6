package ratelimit

import (
	"net/http"

	"github.com/go-logr/logr"
)

// RateLimitedTransport wraps an HTTP transport with rate limiting capabilities
type RateLimitedTransport struct {
	// Base transport for actual HTTP operations
	Base http.RoundTripper

	// Rate limiter for controlling request frequency
	RateLimiter RateLimiter

	Log logr.Logger
}

// NewRateLimitedTransport creates a new rate-limited HTTP transport
func NewRateLimitedTransport(base http.RoundTripper, rateLimiter RateLimiter) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &RateLimitedTransport{
		Base:        base,
		RateLimiter: rateLimiter,
		Log:         logr.Discard(),
	}
}

// RoundTrip implements http.RoundTripper with rate limiting
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if err := t.RateLimiter.AcquireSlot(ctx); err != nil {
		return nil, err
	}
	defer t.RateLimiter.ReleaseSlot()

	if err := t.RateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	response, err := t.Base.RoundTrip(req)

	// A 429 only opens the backoff window for later calls; this response is
	// still handed back to the caller unchanged
	if response != nil {
		if handleErr := t.RateLimiter.HandleResponse(response); handleErr != nil {
			t.Log.Info("rate limited by Atlassian", "url", req.URL.Path, "reason", handleErr.Error())
		}
	}

	return response, err
}
