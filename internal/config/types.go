package config

import "github.com/sable-ai/sable/internal/model"

// Config is the root Sable configuration.
type Config struct {
	Engine     EngineConfig                 `toml:"engine"`
	Tiers      map[string]model.ModelConfig `toml:"tiers"`
	Classifier ClassifierConfig             `toml:"classifier"`
	Cache      CacheConfig                  `toml:"cache"`
	Stream     StreamConfig                 `toml:"stream"`
	Redis      RedisConfig                  `toml:"redis"`
	UsageLog   UsageLogConfig               `toml:"usage_log"`
}

// EngineConfig holds loop-level knobs.
type EngineConfig struct {
	// MaxToolRounds is the default round ceiling when a model config
	// doesn't set its own
	MaxToolRounds int `toml:"max_tool_rounds"`

	// MonthlyBudgetUSD short-circuits new requests once the usage log's
	// monthly spend reaches it; 0 disables the guard
	MonthlyBudgetUSD float64 `toml:"monthly_budget_usd"`
}

// ClassifierConfig holds administrator-tunable classification settings.
type ClassifierConfig struct {
	// Overrides maps a complexity class to regex patterns checked before
	// the built-in layers, e.g. {complex = ["(?i)forecast"], flash = [...]}
	Overrides map[string][]string `toml:"overrides"`

	// FollowUpMaxLen is the question length below which follow-up
	// detection applies
	FollowUpMaxLen int `toml:"follow_up_max_len"`

	// ShortQueryLen is the length below which flash/simple layers are
	// checked before complex
	ShortQueryLen int `toml:"short_query_len"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Backend    string `toml:"backend"` // "memory" or "redis"
	TTLSeconds int    `toml:"ttl_seconds"`
	MaxEntries int    `toml:"max_entries"`
}

// StreamConfig holds partial-answer store settings.
type StreamConfig struct {
	Backend    string `toml:"backend"` // "memory" or "redis"
	TTLSeconds int    `toml:"ttl_seconds"`
}

// RedisConfig holds the shared Redis connection parameters.
type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// UsageLogConfig holds the usage log location.
type UsageLogConfig struct {
	Path string `toml:"path"` // SQLite file; empty disables logging
}
