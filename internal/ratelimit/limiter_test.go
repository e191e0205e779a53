package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_RejectsAfterMax(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := New(10*time.Second, 50, clk)

	for i := 0; i < 50; i++ {
		require.True(t, l.Allow("a"), "call %d should pass", i+1)
	}
	assert.False(t, l.Allow("a"), "51st call must be rejected")
	assert.False(t, l.Allow("a"))

	// Other connections have their own window.
	assert.True(t, l.Allow("b"))
}

func TestLimiter_WindowResets(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := New(10*time.Second, 2, clk)

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	// Exactly one window later is still the same window.
	clk.Advance(10 * time.Second)
	assert.False(t, l.Allow("a"))

	clk.Advance(time.Millisecond)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_SweepAndForget(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := New(10*time.Second, 5, clk)

	l.Allow("old")
	clk.Advance(15 * time.Second)
	l.Allow("fresh")
	require.Equal(t, 2, l.Len())

	assert.Equal(t, 0, l.Sweep(clk.Now()), "old entry is only 1.5 windows idle")

	clk.Advance(6 * time.Second)
	assert.Equal(t, 1, l.Sweep(clk.Now()))
	assert.Equal(t, 1, l.Len())

	l.Forget("fresh")
	assert.Equal(t, 0, l.Len())
}

func TestLimiter_Defaults(t *testing.T) {
	l := New(0, 0, nil)
	assert.Equal(t, DefaultWindow, l.Window())
	assert.Equal(t, DefaultMax, l.max)
}
