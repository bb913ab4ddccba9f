// Package config handles Sable configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/sable-ai/sable/internal/model"
)

// Default returns the default configuration. Tier bindings carry no API
// keys or model ids; those are deploy-time values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".sable")

	return &Config{
		Engine: EngineConfig{
			MaxToolRounds:    8,
			MonthlyBudgetUSD: 0,
		},
		Tiers: map[string]model.ModelConfig{},
		Classifier: ClassifierConfig{
			Overrides:      map[string][]string{},
			FollowUpMaxLen: 60,
			ShortQueryLen:  25,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTLSeconds: 300,
			MaxEntries: 500,
		},
		Stream: StreamConfig{
			Backend:    "memory",
			TTLSeconds: 600,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		UsageLog: UsageLogConfig{
			Path: filepath.Join(dataDir, "usage.db"),
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// Validate checks invariants the rest of the engine relies on.
func (c *Config) Validate() error {
	for tier, m := range c.Tiers {
		if m.ID == "" {
			return fmt.Errorf("tier %q: model id is required", tier)
		}
		switch m.Vendor {
		case model.VendorA, model.VendorB, model.VendorC:
		default:
			return fmt.Errorf("tier %q: unknown vendor %q", tier, m.Vendor)
		}
	}
	for class, patterns := range c.Classifier.Overrides {
		switch model.Complexity(class) {
		case model.ComplexityFlash, model.ComplexitySimple, model.ComplexityComplex:
		default:
			return fmt.Errorf("classifier override: unknown class %q", class)
		}
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("classifier override %q: %w", p, err)
			}
		}
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries must be >= 0")
	}
	return nil
}
