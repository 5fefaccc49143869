package scraper

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces outgoing page fetches so one link submission burst
// cannot hammer a broker's site.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rps fetches per second with no burst. A non-positive
// rps disables limiting.
func NewRateLimiter(rps float64) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next fetch may start or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}
