package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate-limits oracle calls per model. Hosted providers meter each
// model separately, so each gets its own token bucket.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a rate limiter with the given defaults
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the model's limiter clears a request
func (l *Limiter) Wait(ctx context.Context, model string) error {
	return l.getLimiter(model).Wait(ctx)
}

// Allow reports whether a request may proceed without waiting
func (l *Limiter) Allow(model string) bool {
	return l.getLimiter(model).Allow()
}

// SetModelRate overrides the rate for one model
func (l *Limiter) SetModelRate(model string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[model] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) getLimiter(model string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[model]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[model]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[model] = limiter
	return limiter
}
