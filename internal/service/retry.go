package service

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy describes how a lock callback is re-run after lock contention.
// Delay is multiplied by Backoff after every failed attempt.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

// DefaultRetry is used when no policy is configured.
var DefaultRetry = RetryPolicy{
	Attempts: 3,
	Delay:    50 * time.Millisecond,
	Backoff:  2,
}

// backoff builds a fresh go-retry Backoff; the returned value is stateful and
// serves exactly one call.
func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Delay
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		d := delay
		if p.Backoff > 1 {
			delay = time.Duration(float64(delay) * p.Backoff)
		}
		return d, false
	})
	return retry.WithMaxRetries(uint64(max(p.Attempts, 1)-1), next)
}
