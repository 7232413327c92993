package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBackoff = 100 * time.Millisecond
	defaultMaxWait = 2 * time.Minute
)

// Limiter wraps rate.Limiter with an exponential backoff for data sources
// that push back
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu      sync.Mutex
	initial time.Duration
	backoff time.Duration
	maxWait time.Duration
}

// Option configures a Limiter
type Option func(*Limiter)

// WithBackoff sets the initial and maximum backoff
func WithBackoff(initial, max time.Duration) Option {
	return func(l *Limiter) {
		l.initial = initial
		l.backoff = initial
		l.maxWait = max
	}
}

// NewLimiter creates a new rate limiter.
// perMinute specifies the number of requests allowed per minute; zero or
// less means unlimited.
func NewLimiter(name string, perMinute int, opts ...Option) *Limiter {
	l := &Limiter{
		limiter: rate.NewLimiter(rate.Inf, 1),
		name:    name,
		initial: defaultBackoff,
		backoff: defaultBackoff,
		maxWait: defaultMaxWait,
	}
	if perMinute > 0 {
		// Allow burst of up to 5 requests or 1/10th of per-minute limit
		burst := perMinute / 10
		if burst < 1 {
			burst = 1
		}
		if burst > 5 {
			burst = 5
		}
		l.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait blocks until a token is available or context is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited doubles the backoff, up to the maximum wait
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.backoff *= 2
	if l.backoff > l.maxWait {
		l.backoff = l.maxWait
	}
}

// ResetBackoff resets the backoff duration after a successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = l.initial
}

// Backoff returns the current backoff duration
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// Sleep waits for the current backoff or until ctx is done
func (l *Limiter) Sleep(ctx context.Context) error {
	t := time.NewTimer(l.Backoff())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}
