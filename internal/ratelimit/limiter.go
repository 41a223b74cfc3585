// Package ratelimit caps how fast a workload's workers start iterations.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter is shared by every worker of one workload. A rate of zero
// disables limiting, as does a nil *RateLimiter.
type RateLimiter struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// NewRateLimiter allows opsPerSecond iterations per second with a burst of
// one second's worth.
func NewRateLimiter(opsPerSecond int) *RateLimiter {
	opsPerSecond = max(opsPerSecond, 0)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(opsPerSecond), opsPerSecond),
	}
}

// ForWorkload returns a limiter for a workload's configured rate, or nil
// when the workload is unlimited.
func ForWorkload(opsPerSecond int) *RateLimiter {
	if opsPerSecond <= 0 {
		return nil
	}
	return NewRateLimiter(opsPerSecond)
}

// Wait blocks until the next iteration may start or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	r.mu.RLock()
	limiter := r.limiter
	limit := limiter.Limit()
	r.mu.RUnlock()

	if limit == 0 {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// SetRate changes the cap for every worker sharing r.
func (r *RateLimiter) SetRate(opsPerSecond int) {
	opsPerSecond = max(opsPerSecond, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.SetLimit(rate.Limit(opsPerSecond))
	r.limiter.SetBurst(opsPerSecond)
}

// Rate returns the current cap in iterations per second.
func (r *RateLimiter) Rate() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int(r.limiter.Limit())
}
