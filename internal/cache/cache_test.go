package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New[string](10, time.Minute)
	c.Set("prices.equity/AAPL", "result-a")

	v, ok := c.Get("prices.equity/AAPL")
	require.True(t, ok)
	assert.Equal(t, "result-a", v)
}

func TestExpiry(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("k", "v")

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestPurgeOnReload(t *testing.T) {
	c := New[string](10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Purge()

	assert.Equal(t, 0, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c := New[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestStartSweepEvictsExpired(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	stop := c.StartSweep(5 * time.Millisecond)
	defer stop()

	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
}
