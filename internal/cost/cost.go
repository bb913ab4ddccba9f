// Package cost converts token usage into dollar cost using per-model
// pricing. Calculation is a pure function; the Tracker adds process-level
// running totals for observability.
package cost

import (
	"sync"

	"github.com/sable-ai/sable/internal/model"
)

// Breakdown itemizes the cost of one usage sample in USD.
type Breakdown struct {
	InputUSD      float64 `json:"input_usd"`
	OutputUSD     float64 `json:"output_usd"`
	CacheReadUSD  float64 `json:"cache_read_usd"`
	CacheWriteUSD float64 `json:"cache_write_usd"`
	TotalUSD      float64 `json:"total_usd"`
}

const perMillion = 1_000_000.0

// Calculate prices a usage sample against a model's pricing.
//
// Cache-read and cache-write tokens are carved out of the input count and
// priced at their own rates; the remainder is regular input, clamped at
// zero so inconsistent vendor counts never produce negative cost.
func Calculate(cfg model.ModelConfig, usage model.Usage) Breakdown {
	regular := usage.Input - usage.CacheRead - usage.CacheWrite
	if regular < 0 {
		regular = 0
	}

	b := Breakdown{
		InputUSD:      float64(regular) / perMillion * cfg.Pricing.Input,
		OutputUSD:     float64(usage.Output) / perMillion * cfg.Pricing.Output,
		CacheReadUSD:  float64(usage.CacheRead) / perMillion * cfg.Pricing.CacheRead,
		CacheWriteUSD: float64(usage.CacheWrite) / perMillion * cfg.Pricing.CacheWrite,
	}
	b.TotalUSD = b.InputUSD + b.OutputUSD + b.CacheReadUSD + b.CacheWriteUSD
	return b
}

// Tracker accumulates spend across requests.
type Tracker struct {
	mu       sync.Mutex
	requests int
	totalUSD float64
	byModel  map[string]float64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byModel: make(map[string]float64)}
}

// Record adds one request's cost.
func (t *Tracker) Record(modelID string, b Breakdown) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests++
	t.totalUSD += b.TotalUSD
	t.byModel[modelID] += b.TotalUSD
}

// Totals returns the request count and total spend so far.
func (t *Tracker) Totals() (requests int, totalUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests, t.totalUSD
}

// ByModel returns a copy of per-model spend.
func (t *Tracker) ByModel() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.byModel))
	for k, v := range t.byModel {
		out[k] = v
	}
	return out
}
