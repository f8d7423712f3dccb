package resilience

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// CycleBackoff computes how long to wait before the next poll cycle.
// Healthy cycles wait the base interval; consecutive failing cycles wait
// exponentially longer, capped at max.
type CycleBackoff struct {
	base time.Duration
	bo   *backoff.ExponentialBackOff
}

// NewCycleBackoff creates a CycleBackoff for a base interval.
func NewCycleBackoff(base, max time.Duration) *CycleBackoff {
	if max < base {
		max = base
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.MaxInterval = max
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.1
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &CycleBackoff{base: base, bo: bo}
}

// Next returns the delay after a cycle. failed reports whether every
// fetch in the cycle failed.
func (c *CycleBackoff) Next(failed bool) time.Duration {
	if !failed {
		c.bo.Reset()
		return c.base
	}
	return c.bo.NextBackOff()
}
