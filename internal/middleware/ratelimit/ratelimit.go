// Package ratelimit paces outbound HTTP requests using a token bucket.
package ratelimit

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// Config holds the configuration for request pacing
type Config struct {
	// RequestsPerSecond is the sustained request rate; zero or less disables pacing
	RequestsPerSecond float64
	// BurstSize is the maximum burst size (minimum 1)
	BurstSize int
}

// Limiter is an http.RoundTripper that waits for a token before each request
type Limiter struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

// NewTransport wraps next so that requests leave no faster than cfg allows.
func NewTransport(cfg Config, next http.RoundTripper) *Limiter {
	if next == nil {
		next = http.DefaultTransport
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		next:    next,
	}
}

// RoundTrip blocks until the limiter allows the request or the request context ends
func (l *Limiter) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := l.limiter.Wait(r.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return l.next.RoundTrip(r)
}

// Limit returns the configured rate
func (l *Limiter) Limit() rate.Limit {
	return l.limiter.Limit()
}
