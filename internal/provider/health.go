package provider

import (
	"sync"
	"time"
)

// Health tracks vendors whose accounts have run out of credit. The agent
// loop's downgrade chain consults it so a dead vendor isn't retried on
// every tier it serves.
type Health struct {
	mu        sync.RWMutex
	exhausted map[string]time.Time // vendor+model -> marked-at
	coolOff   time.Duration
	clock     func() time.Time
}

// NewHealth creates a health registry. Exhaustion marks decay after
// coolOff so a topped-up account comes back without a restart.
func NewHealth(coolOff time.Duration, clock func() time.Time) *Health {
	if clock == nil {
		clock = time.Now
	}
	if coolOff <= 0 {
		coolOff = 15 * time.Minute
	}
	return &Health{
		exhausted: make(map[string]time.Time),
		coolOff:   coolOff,
		clock:     clock,
	}
}

// MarkExhausted records that a model's account has no credit left.
func (h *Health) MarkExhausted(modelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exhausted[modelID] = h.clock()
}

// Exhausted reports whether a model's vendor is known to be out of credit.
func (h *Health) Exhausted(modelID string) bool {
	h.mu.RLock()
	marked, ok := h.exhausted[modelID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if h.clock().Sub(marked) > h.coolOff {
		h.mu.Lock()
		delete(h.exhausted, modelID)
		h.mu.Unlock()
		return false
	}
	return true
}
