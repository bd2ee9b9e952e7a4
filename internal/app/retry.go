package app

import "time"

// RetryPolicy parameterizes a bounded retry loop: how many attempts and
// how long to wait before each one. Injected as configuration so tests
// can shrink or virtualize the waits.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// FixedBackoff waits the same duration before every attempt.
func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 6
	}
	if p.Backoff == nil {
		p.Backoff = FixedBackoff(time.Second)
	}
	return p
}
