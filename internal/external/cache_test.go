package external

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestResponseCache_ExpiresAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewResponseCache[string](clock)

	c.Set("k", "v", 30*time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(29 * time.Minute)
	_, ok = c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestResponseCache_ZeroTTLDoesNotStore(t *testing.T) {
	c := NewResponseCache[int](clockwork.NewFakeClock())
	c.Set("k", 1, 0)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestResponseCache_SweepAndDelete(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewResponseCache[int](clock)

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	c.Set("gone", 3, time.Hour)
	c.Delete("gone")

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
