package upstream

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy controls how Fetch retries. Attempts are total calls, so the
// default of 3 gives two retries after 2s and 4s.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = def.MaxDelay
		if p.MaxDelay < p.InitialDelay {
			p.MaxDelay = p.InitialDelay
		}
	}
	return p
}

// backOff returns a fresh, jitter-free exponential schedule.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = 0
	b.Reset()
	return b
}
