package notify

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_FirstWaitIsImmediate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	gate := NewGate(time.Second, clock)

	// With a fake clock that nobody advances, a blocking Wait would hang.
	// Returning here proves the first call does not block.
	require.NoError(t, gate.Wait(context.Background()))
}

func TestGate_ZeroIntervalNeverBlocks(t *testing.T) {
	gate := NewGate(0, clockwork.NewFakeClock())

	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Wait(context.Background()))
	}
}

func TestGate_EnforcesIntervalBetweenSends(t *testing.T) {
	interval := 40 * time.Millisecond
	gate := NewGate(interval, nil)

	require.NoError(t, gate.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, gate.Wait(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, interval, "second send must wait out the interval")
}

func TestGate_ElapsedIntervalDoesNotBlock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	gate := NewGate(time.Second, clock)

	require.NoError(t, gate.Wait(context.Background()))
	clock.Advance(2 * time.Second)

	// The interval already passed while other work ran, so this must not
	// block on the fake clock.
	require.NoError(t, gate.Wait(context.Background()))
}

func TestGate_CancelledContextReleasesWaiter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	gate := NewGate(time.Second, clock)

	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
