package fleet

import (
	"math"
	"math/rand"
	"time"
)

// Default reconnect parameters, matching the configuration defaults.
const (
	defaultBaseDelay = 5 * time.Second
	defaultMaxDelay  = 300 * time.Second
	defaultJitter    = 0.1
)

// ReconnectPolicy computes exponentially growing, jittered delays between
// session cycles. It is owned by a single session goroutine and is not
// safe for concurrent use.
type ReconnectPolicy struct {
	base    time.Duration
	max     time.Duration
	jitter  float64
	attempt int
}

// NewReconnectPolicy creates a policy with the given base delay, ceiling
// and jitter fraction. Non-positive or out-of-range arguments fall back
// to the defaults.
func NewReconnectPolicy(base, max time.Duration, jitter float64) *ReconnectPolicy {
	if base <= 0 {
		base = defaultBaseDelay
	}
	if max < base {
		max = defaultMaxDelay
	}
	if jitter < 0 || jitter > 1 {
		jitter = defaultJitter
	}
	return &ReconnectPolicy{base: base, max: max, jitter: jitter}
}

// NextDelay advances the attempt counter and returns the next delay:
// base doubled per attempt, capped at the ceiling, then spread by a
// uniform jitter of ±jitter·delay. The result never drops below the
// base delay, so jitter cannot produce a hot reconnect loop.
func (p *ReconnectPolicy) NextDelay() time.Duration {
	p.attempt++

	nominal := float64(p.base) * math.Pow(2, float64(p.attempt-1))
	if nominal > float64(p.max) {
		nominal = float64(p.max)
	}

	spread := nominal * p.jitter
	delay := nominal + (rand.Float64()*2-1)*spread

	if delay < float64(p.base) {
		delay = float64(p.base)
	}
	return time.Duration(delay)
}

// Reset clears the attempt counter. Called once a subscription is
// confirmed, so only a fully established stream earns a fresh backoff.
func (p *ReconnectPolicy) Reset() {
	p.attempt = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (p *ReconnectPolicy) Attempts() int {
	return p.attempt
}
