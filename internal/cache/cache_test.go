package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(maxEntries int) (*Memory, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return NewMemory(5*time.Minute, maxEntries, clock.Now), clock
}

func TestKeyCanonicalization(t *testing.T) {
	t.Run("key order does not matter", func(t *testing.T) {
		a := Key("list_items", map[string]any{"warehouse": "W1", "limit": 10})
		b := Key("list_items", map[string]any{"limit": 10, "warehouse": "W1"})
		assert.Equal(t, a, b)
	})

	t.Run("different args differ", func(t *testing.T) {
		a := Key("list_items", map[string]any{"warehouse": "W1"})
		b := Key("list_items", map[string]any{"warehouse": "W2"})
		assert.NotEqual(t, a, b)
	})

	t.Run("different tools differ", func(t *testing.T) {
		a := Key("list_items", map[string]any{"x": 1})
		b := Key("get_item", map[string]any{"x": 1})
		assert.NotEqual(t, a, b)
	})

	t.Run("nil and empty args are equivalent", func(t *testing.T) {
		assert.Equal(t, Key("list_items", nil), Key("list_items", map[string]any{}))
	})
}

func TestMemoryRoundTrip(t *testing.T) {
	c, _ := newTestCache(0)
	ctx := context.Background()
	args := map[string]any{"warehouse": "W1"}

	_, ok := c.Get(ctx, "list_items", args)
	assert.False(t, ok)

	c.Set(ctx, "list_items", args, "forty-two", nil)
	got, ok := c.Get(ctx, "list_items", args)
	require.True(t, ok)
	assert.Equal(t, "forty-two", got)
}

func TestMemoryTTLExpiry(t *testing.T) {
	c, clock := newTestCache(0)
	ctx := context.Background()
	args := map[string]any{"id": "X"}

	c.Set(ctx, "get_item", args, "v", nil)

	clock.Advance(4 * time.Minute)
	_, ok := c.Get(ctx, "get_item", args)
	assert.True(t, ok, "entry should survive within TTL")

	clock.Advance(2 * time.Minute)
	_, ok = c.Get(ctx, "get_item", args)
	assert.False(t, ok, "entry should expire after TTL")
}

func TestMemoryEvictsOldestFirst(t *testing.T) {
	c, _ := newTestCache(3)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		c.Set(ctx, "get_item", map[string]any{"id": id}, id, nil)
	}

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get(ctx, "get_item", map[string]any{"id": "a"})
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get(ctx, "get_item", map[string]any{"id": "d"})
	assert.True(t, ok)
}

func TestMemoryTagInvalidation(t *testing.T) {
	c, _ := newTestCache(0)
	ctx := context.Background()

	c.Set(ctx, "list_orders", map[string]any{"customer": "ACME"}, 1, []string{"customer:ACME"})
	c.Set(ctx, "list_orders", map[string]any{"customer": "Globex"}, 2, []string{"customer:Globex"})

	c.InvalidateTag(ctx, "customer:ACME")

	_, ok := c.Get(ctx, "list_orders", map[string]any{"customer": "ACME"})
	assert.False(t, ok, "tagged entry should be invalidated")
	_, ok = c.Get(ctx, "list_orders", map[string]any{"customer": "Globex"})
	assert.True(t, ok, "other tags must survive")
}

func TestMemoryInvalidationSweepsLegacyEntries(t *testing.T) {
	c, _ := newTestCache(0)
	ctx := context.Background()

	// entry written before tag derivation existed
	c.Set(ctx, "list_orders", map[string]any{"q": "all"}, 1, nil)
	c.Set(ctx, "list_orders", map[string]any{"customer": "Globex"}, 2, []string{"customer:Globex"})

	c.InvalidateTag(ctx, "customer:ACME")

	_, ok := c.Get(ctx, "list_orders", map[string]any{"q": "all"})
	assert.False(t, ok, "untagged legacy entries are swept coarsely")
	_, ok = c.Get(ctx, "list_orders", map[string]any{"customer": "Globex"})
	assert.True(t, ok)
}

func TestMemoryFlush(t *testing.T) {
	c, _ := newTestCache(0)
	ctx := context.Background()

	c.Set(ctx, "a", map[string]any{"i": 1}, 1, nil)
	c.Set(ctx, "b", map[string]any{"i": 2}, 2, nil)
	c.Flush(ctx)

	assert.Equal(t, 0, c.Len())
}

func TestMemoryConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(50)
	ctx := context.Background()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				args := map[string]any{"g": g, "i": i % 10}
				c.Set(ctx, "list_items", args, i, nil)
				c.Get(ctx, "list_items", args)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	assert.LessOrEqual(t, c.Len(), 50)
}

func TestDeriveTags(t *testing.T) {
	tags := DeriveTags("list_orders", map[string]any{
		"customer": "ACME",
		"limit":    50,
		"Item":     "WIDGET-1",
	})

	assert.Contains(t, tags, "tool:list_orders")
	assert.Contains(t, tags, "customer:ACME")
	assert.Contains(t, tags, "item:WIDGET-1")
	assert.NotContains(t, tags, "limit:50")
}
