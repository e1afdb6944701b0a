package notify

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Gate enforces a fixed minimum interval between consecutive sends to respect
// the mail provider's rate limits. The delay policy lives here, decoupled
// from the scan loop, so it can be tuned without touching scan logic. Waiting
// is cooperative: a cancelled context releases the caller immediately.
type Gate struct {
	interval time.Duration
	clock    clockwork.Clock
	last     time.Time
}

// NewGate creates a gate with the given minimum inter-send interval.
func NewGate(interval time.Duration, clock clockwork.Clock) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{interval: interval, clock: clock}
}

// Wait blocks until at least the configured interval has passed since the
// previous Wait returned. The first call returns immediately.
func (g *Gate) Wait(ctx context.Context) error {
	if g.interval <= 0 {
		return nil
	}

	now := g.clock.Now()
	if !g.last.IsZero() {
		if remaining := g.interval - now.Sub(g.last); remaining > 0 {
			select {
			case <-g.clock.After(remaining):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	g.last = g.clock.Now()
	return nil
}
