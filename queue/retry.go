package queue

import (
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is how many times a task may run before it is
	// failed permanently.
	DefaultMaxAttempts = 3

	defaultRetryDelay = 5 * time.Minute
)

// RetryPolicy decides how long to wait before a failed task runs again.
// attempt is the number of attempts already made, starting at 1.
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay retries after the same delay every time.
type FixedDelay struct {
	Delay time.Duration
}

func (p FixedDelay) NextDelay(int) time.Duration {
	if p.Delay <= 0 {
		return defaultRetryDelay
	}

	return p.Delay
}

// ExponentialBackoff doubles the delay per attempt, capped at Max, with
// a random jitter fraction added to spread out retry storms.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (p ExponentialBackoff) NextDelay(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = time.Minute
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2

		if p.Max > 0 && delay >= p.Max {
			delay = p.Max

			break
		}
	}

	if p.Jitter > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}

	if p.Max > 0 && delay > p.Max {
		delay = p.Max
	}

	return delay
}
