package session

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// retryBackoff computes the pause before each request retry. The
// generator is locked because retries from many goroutines share one
// session.
type retryBackoff struct {
	cfg BackoffConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func newRetryBackoff(cfg BackoffConfig) *retryBackoff {
	return &retryBackoff{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// delay returns the wait before retry n (1-based). Delays grow
// geometrically from InitialDelay and cap at MaxDelay; with Jitter set
// each delay is scaled by a random factor in [0.5, 1.5) so a burst of
// timed-out callers does not retry in lockstep.
func (b *retryBackoff) delay(n int) time.Duration {
	if b.cfg.InitialDelay <= 0 {
		return 0
	}
	mult := b.cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	d := float64(b.cfg.InitialDelay)
	if n > 1 {
		d *= math.Pow(mult, float64(n-1))
	}
	if b.cfg.MaxDelay > 0 && d > float64(b.cfg.MaxDelay) {
		d = float64(b.cfg.MaxDelay)
	}
	if b.cfg.Jitter {
		b.mu.Lock()
		f := 0.5 + b.rng.Float64()
		b.mu.Unlock()
		d *= f
	}
	return time.Duration(d)
}
