// Package ratelimit throttles provider calls by requests and tokens per minute.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces tokens per minute (TPM) and requests per minute (RPM).
// A limit of zero or less disables that dimension.
type Limiter struct {
	tokens   *rate.Limiter
	requests *rate.Limiter
}

// NewLimiter creates a new rate limiter with specified TPM and RPM limits.
// Both buckets start full.
func NewLimiter(tpm, rpm int) *Limiter {
	return &Limiter{
		tokens:   rate.NewLimiter(perMinute(tpm), max(tpm, 1)),
		requests: rate.NewLimiter(perMinute(rpm), max(rpm, 1)),
	}
}

// Wait blocks until one request of tokensNeeded tokens can proceed. Requests
// larger than the whole per-minute allowance wait for a full bucket.
func (l *Limiter) Wait(ctx context.Context, tokensNeeded int) error {
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}
	n := min(max(tokensNeeded, 0), l.tokens.Burst())
	if n == 0 {
		return ctx.Err()
	}
	return l.tokens.WaitN(ctx, n)
}

// SetTPM updates the tokens per minute limit
func (l *Limiter) SetTPM(tpm int) {
	l.tokens.SetBurst(max(tpm, 1))
	l.tokens.SetLimit(perMinute(tpm))
}

// SetRPM updates the requests per minute limit
func (l *Limiter) SetRPM(rpm int) {
	l.requests.SetBurst(max(rpm, 1))
	l.requests.SetLimit(perMinute(rpm))
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}
