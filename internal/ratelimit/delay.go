package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter is a randomized pause drawn uniformly from [Min, Max]. It spaces
// out page requests and listing parses the way a person browsing would.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Next returns the next delay
func (j Jitter) Next() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + rand.N(j.Max-j.Min+1)
}

// Wait sleeps for Next() unless ctx is cancelled first
func (j Jitter) Wait(ctx context.Context) error {
	d := j.Next()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
