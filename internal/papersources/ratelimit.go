package papersources

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket that slows down when a provider answers 429
// and creeps back to its configured rate as requests succeed again.
type RateLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	ceiling float64
	floor   float64
}

// NewRateLimiter creates a limiter allowing ratePerSecond sustained requests
// with the given burst. Throttling never goes below an eighth of the rate.
//
//   - PubMed without an API key: NewRateLimiter(3, 3)
//   - arXiv: NewRateLimiter(1, 1)
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		ceiling: ratePerSecond,
		floor:   ratePerSecond / 8,
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Throttle halves the current rate, bounded by the floor.
func (r *RateLimiter) Throttle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.SetLimit(rate.Limit(max(r.floor, r.Rate()/2)))
}

// Relax raises the current rate by a quarter, bounded by the configured rate.
func (r *RateLimiter) Relax() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.Rate(); cur < r.ceiling {
		r.limiter.SetLimit(rate.Limit(min(r.ceiling, cur*1.25)))
	}
}

// Rate returns the current sustained rate.
func (r *RateLimiter) Rate() float64 {
	return float64(r.limiter.Limit())
}
