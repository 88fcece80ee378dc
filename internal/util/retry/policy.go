package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Default policy values.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultJitter     = 0.2
)

// Policy decides whether a failed attempt is retried and the delay before it.
//
// Attempts are numbered from 1. A transient failure on attempt n is retried
// while n <= MaxRetries, so an operation runs at most MaxRetries+1 times.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Jitter is the fraction (0..1) by which a delay may be randomly
	// shortened or lengthened.
	Jitter float64

	// Rand returns a value in [0, 1). Nil uses math/rand/v2.
	Rand func() float64
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Jitter:     DefaultJitter,
	}
}

// Next returns the delay before the next attempt and true if the failure of
// the given attempt should be retried. Fatal errors always return false.
func (p Policy) Next(err error, attempt int) (time.Duration, bool) {
	if IsFatal(err) {
		return 0, false
	}
	if attempt > p.MaxRetries {
		return 0, false
	}
	return p.Delay(attempt), true
}

// Delay returns base * 2^(attempt-1) with jitter applied. MaxDelay is a hard
// cap: jitter never pushes the delay above it.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	if p.Jitter > 0 {
		r := p.Rand
		if r == nil {
			r = rand.Float64
		}
		// Scale into [1-Jitter, 1+Jitter).
		d *= 1 + p.Jitter*(2*r()-1)
	}

	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
