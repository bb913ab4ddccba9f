package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sable-ai/sable/internal/model"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.MaxToolRounds)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 600, cfg.Stream.TTLSeconds)
	assert.Empty(t, cfg.Tiers)
}

func TestLoadParsesTiersAndOverrides(t *testing.T) {
	raw := `
[engine]
max_tool_rounds = 6
monthly_budget_usd = 50.0

[tiers.premium]
id = "big-1"
vendor = "vendora"
max_tokens = 8192
supports_tools = true
supports_reasoning = true

[tiers.premium.pricing]
input = 3.0
output = 15.0
cache_read = 0.3
cache_write = 3.75

[tiers.premium.budgets]
flash = 5000
simple = 15000
medium = 35000
complex = 60000

[classifier]
follow_up_max_len = 60

[classifier.overrides]
complex = ["(?i)forecast", "(?i)year over year"]
flash = ["(?i)^ping$"]
`
	path := filepath.Join(t.TempDir(), "sable.toml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Engine.MaxToolRounds)
	assert.Equal(t, 50.0, cfg.Engine.MonthlyBudgetUSD)

	premium, ok := cfg.Tiers["premium"]
	require.True(t, ok)
	assert.Equal(t, "big-1", premium.ID)
	assert.Equal(t, model.VendorA, premium.Vendor)
	assert.True(t, premium.SupportsReasoning)
	assert.Equal(t, 3.0, premium.Pricing.Input)
	assert.Equal(t, 60000, premium.Budgets.Complex)

	assert.Len(t, cfg.Classifier.Overrides["complex"], 2)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Run("unknown vendor", func(t *testing.T) {
		raw := "[tiers.fast]\nid = \"m\"\nvendor = \"vendorz\"\n"
		path := filepath.Join(t.TempDir(), "sable.toml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

		_, err := Load(path)
		assert.ErrorContains(t, err, "unknown vendor")
	})

	t.Run("invalid override regex", func(t *testing.T) {
		raw := "[classifier.overrides]\ncomplex = [\"(unclosed\"]\n"
		path := filepath.Join(t.TempDir(), "sable.toml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Engine.MaxToolRounds = 4
	cfg.Tiers["fast"] = model.ModelConfig{ID: "mini-1", Vendor: model.VendorB}

	path := filepath.Join(t.TempDir(), "out", "sable.toml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Engine.MaxToolRounds)
	assert.Equal(t, "mini-1", loaded.Tiers["fast"].ID)
}
