package model

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTiers() map[string]ModelConfig {
	return map[string]ModelConfig{
		TierFast:     {ID: "mini-1", Vendor: VendorB},
		TierStandard: {ID: "mid-1", Vendor: VendorC},
		TierPremium:  {ID: "big-1", Vendor: VendorA},
		TierVision:   {ID: "eyes-1", Vendor: VendorA},
	}
}

func TestResolverResolve(t *testing.T) {
	r := NewResolver(testTiers())

	t.Run("bound tier resolves", func(t *testing.T) {
		cfg, ok := r.Resolve(TierPremium)
		require.True(t, ok)
		assert.Equal(t, "big-1", cfg.ID)
	})

	t.Run("unbound tier is absent", func(t *testing.T) {
		_, ok := r.Resolve(TierFallback)
		assert.False(t, ok)
	})
}

func TestResolverResolveFor(t *testing.T) {
	t.Run("pinned model overrides tier", func(t *testing.T) {
		r := NewResolver(testTiers())
		cfg, ok := r.ResolveFor(TierFast, "alice", "big-1", false)
		require.True(t, ok)
		assert.Equal(t, "big-1", cfg.ID)
	})

	t.Run("principal pin overrides tier", func(t *testing.T) {
		r := NewResolver(testTiers())
		r.Pin("bob", "mid-1")
		cfg, ok := r.ResolveFor(TierPremium, "bob", "", false)
		require.True(t, ok)
		assert.Equal(t, "mid-1", cfg.ID)
	})

	t.Run("images route to vision tier", func(t *testing.T) {
		r := NewResolver(testTiers())
		cfg, ok := r.ResolveFor(TierFast, "", "", true)
		require.True(t, ok)
		assert.Equal(t, "eyes-1", cfg.ID)
	})

	t.Run("images fall back to premium without a vision tier", func(t *testing.T) {
		tiers := testTiers()
		delete(tiers, TierVision)
		r := NewResolver(tiers)
		cfg, ok := r.ResolveFor(TierFast, "", "", true)
		require.True(t, ok)
		assert.Equal(t, "big-1", cfg.ID)
	})

	t.Run("unknown pin falls through to tier", func(t *testing.T) {
		r := NewResolver(testTiers())
		cfg, ok := r.ResolveFor(TierStandard, "", "nope-9", false)
		require.True(t, ok)
		assert.Equal(t, "mid-1", cfg.ID)
	})
}

func TestResolverConcurrentPins(t *testing.T) {
	r := NewResolver(testTiers())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			principal := fmt.Sprintf("user-%d", n)
			for j := 0; j < 50; j++ {
				r.Pin(principal, "mid-1")
				cfg, ok := r.ResolveFor(TierPremium, principal, "", false)
				assert.True(t, ok)
				assert.Contains(t, []string{"mid-1", "big-1"}, cfg.ID)
				r.Unpin(principal)
			}
		}(i)
	}
	wg.Wait()
}

func TestDowngradeChain(t *testing.T) {
	assert.Equal(t, []string{TierStandard, TierFast}, DowngradeChain(TierPremium))
	assert.Equal(t, []string{TierFast}, DowngradeChain(TierStandard))
	assert.Nil(t, DowngradeChain(TierFast))
}

func TestUsageAdd(t *testing.T) {
	var u Usage
	u.Add(Usage{Input: 100, Output: 20, CacheRead: 5})
	u.Add(Usage{Input: 50, Output: 30, CacheWrite: 7})

	assert.Equal(t, 150, u.Input)
	assert.Equal(t, 50, u.Output)
	assert.Equal(t, 5, u.CacheRead)
	assert.Equal(t, 7, u.CacheWrite)
	assert.Equal(t, 200, u.Total())
}

func TestBudgetsForComplexity(t *testing.T) {
	b := Budgets{Flash: 5000, Simple: 15000, Medium: 35000, Complex: 60000}
	assert.Equal(t, 5000, b.ForComplexity(ComplexityFlash))
	assert.Equal(t, 15000, b.ForComplexity(ComplexitySimple))
	assert.Equal(t, 60000, b.ForComplexity(ComplexityComplex))
	assert.Equal(t, 35000, b.ForComplexity(Complexity("unknown")))
}
