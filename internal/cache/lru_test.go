package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/log"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())

	st := c.Stats()
	assert.EqualValues(t, 2, st.Hits)
	assert.EqualValues(t, 1, st.Misses)
}

func TestLRUExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute)
	c.now = clk.now

	c.Set("k", "v")
	c.Set("other", "v")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("other", "v2")
	clk.t = clk.t.Add(31 * time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)
	v, ok := c.Get("other")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	clk.t = clk.t.Add(time.Hour)
	j := NewJanitor(log.Discard())
	j.Register(c)
	assert.Equal(t, 1, j.Sweep())
	assert.Zero(t, c.Size())
}

func TestLRUNoTTL(t *testing.T) {
	clk := &clock{t: time.Now()}
	c := NewLRUCache[int](1, 0)
	c.now = clk.now
	c.Set("k", 1)
	clk.t = clk.t.Add(24 * time.Hour)
	_, ok := c.Get("k")
	assert.True(t, ok)
	assert.Zero(t, c.CleanExpired())

	c.Delete("k")
	assert.Zero(t, c.Size())
}
