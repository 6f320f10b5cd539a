package connection

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// reconnectPolicy tracks reconnect attempts for one stream and yields
// delay = min(base * 2^attempts, MaxBackoff).
type reconnectPolicy struct {
	max      int
	attempts int
	backoff  *backoff.ExponentialBackOff
}

func newReconnectPolicy(base time.Duration, maxAttempts int) *reconnectPolicy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = MaxBackoff
	b.Reset()

	return &reconnectPolicy{
		max:     maxAttempts,
		backoff: b,
	}
}

// exhausted reports whether no further reconnect may be scheduled.
func (p *reconnectPolicy) exhausted() bool {
	return p.attempts >= p.max
}

// next records a scheduled attempt and returns its delay.
func (p *reconnectPolicy) next() time.Duration {
	p.attempts++
	d := p.backoff.NextBackOff()
	if d > MaxBackoff {
		d = MaxBackoff
	}
	return d
}

// reset clears the attempt counter after a successful open.
func (p *reconnectPolicy) reset() {
	p.attempts = 0
	p.backoff.Reset()
}
