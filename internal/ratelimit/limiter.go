// Package ratelimit spaces out requests to the generation backend.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int // 0 disables limiting
	BurstSize         int
}

// Limiter provides rate limiting for API requests. A nil *Limiter allows
// everything.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter, or returns nil if cfg disables limiting.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}
	every := time.Minute / time.Duration(cfg.RequestsPerMinute)
	return &Limiter{limiter: rate.NewLimiter(rate.Every(every), burst)}
}

// Wait blocks until a request slot is available or ctx is done. It fails
// at once if ctx expires before the slot would free up.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
