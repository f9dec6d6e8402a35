package hotspot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterCeiling(t *testing.T) {
	store := testSharedStore(t)
	limiter := NewRateLimiter(store, time.Minute, 5, nil)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.CheckAndIncrement(1), "call %d should pass", i+1)
	}
	assert.False(t, limiter.CheckAndIncrement(1), "call over the ceiling must be denied")
	assert.False(t, limiter.CheckAndIncrement(1))
}

func TestRateLimiterPerDeviceBudget(t *testing.T) {
	store := testSharedStore(t)
	limiter := NewRateLimiter(store, time.Minute, 2, nil)

	assert.True(t, limiter.CheckAndIncrement(1))
	assert.True(t, limiter.CheckAndIncrement(1))
	assert.False(t, limiter.CheckAndIncrement(1))

	// Device 2 draws from its own window.
	assert.True(t, limiter.CheckAndIncrement(2))
}

func TestRateLimiterWindowReset(t *testing.T) {
	store := testSharedStore(t)
	clk := newFakeClock()
	limiter := NewRateLimiter(store, time.Minute, 2, clk.Now)

	assert.True(t, limiter.CheckAndIncrement(7))
	assert.True(t, limiter.CheckAndIncrement(7))
	assert.False(t, limiter.CheckAndIncrement(7))

	clk.Advance(59 * time.Second)
	assert.False(t, limiter.CheckAndIncrement(7), "window has not elapsed yet")

	clk.Advance(2 * time.Second)
	assert.True(t, limiter.CheckAndIncrement(7), "counter resets after the window elapses")
}

func TestRateLimiterDefaultCeilingScenario(t *testing.T) {
	store := testSharedStore(t)
	clk := newFakeClock()
	limiter := NewRateLimiter(store, time.Minute, 100, clk.Now)

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.CheckAndIncrement(9))
	}
	assert.False(t, limiter.CheckAndIncrement(9), "call 101 inside the window is rejected")

	clk.Advance(61 * time.Second)
	assert.True(t, limiter.CheckAndIncrement(9), "call 101 after the window succeeds")
}

func TestRateLimiterSharedAcrossInstances(t *testing.T) {
	store := testSharedStore(t)
	first := NewRateLimiter(store, time.Minute, 2, nil)
	second := NewRateLimiter(store, time.Minute, 2, nil)

	assert.True(t, first.CheckAndIncrement(3))
	assert.True(t, second.CheckAndIncrement(3))
	assert.False(t, first.CheckAndIncrement(3), "both limiters draw from one shared budget")
}

func TestRateLimiterFailsOpenOnBrokenStore(t *testing.T) {
	store := testSharedStore(t)
	limiter := NewRateLimiter(store, time.Minute, 1, nil)

	require.True(t, limiter.CheckAndIncrement(4))
	require.False(t, limiter.CheckAndIncrement(4))

	// A broken counter store must never block all device traffic.
	require.NoError(t, store.Close())
	assert.True(t, limiter.CheckAndIncrement(4), "store failures admit the call")
}
