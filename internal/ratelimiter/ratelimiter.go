package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound RPC traffic using a token bucket. It wraps
// golang.org/x/time/rate so callers get both a non-blocking fast path
// (Allow) and a context-aware blocking path (Wait).
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter that sustains requestsPerSecond with the
// given burst capacity. A rate of 0 disables limiting.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		// Effectively unlimited. rate.Inf has edge cases with Wait,
		// so use a large finite rate instead.
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a request may proceed right now, consuming a
// token when it may. It never blocks.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently in the bucket. Useful
// for monitoring; the value may change immediately after the call.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
