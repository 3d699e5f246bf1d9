package scheduler

import (
	"math"
	"math/rand"
	"time"
)

// retryPolicy controls the attempt loop for network-class failures. Only
// network_error and timed_out are retried; structural and policy failures
// repeat deterministically, so a second call would just burn the budget.
type retryPolicy struct {
	maxAttempts int
	baseBackoff time.Duration
}

// backoff returns the pause before the attempt after the given one, using
// exponential growth with jitter so concurrent agents do not retry in
// lockstep against the same upstream.
func (p retryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.baseBackoff) * math.Pow(2, float64(attempt-1))

	// ±20% jitter
	jitter := d * 0.20 * (rand.Float64()*2 - 1)
	d += jitter

	if d < 0 {
		d = float64(p.baseBackoff)
	}
	return time.Duration(d)
}
