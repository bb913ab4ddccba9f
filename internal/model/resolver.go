package model

import "sync"

// Resolver maps abstract tier names to concrete model configurations.
// Tier bindings come from configuration; resolution never fabricates a
// model. Tier and id maps are immutable after construction; pins may be
// changed at runtime, so they sit behind a lock.
type Resolver struct {
	tiers map[string]ModelConfig
	byID  map[string]ModelConfig

	mu     sync.RWMutex
	pinned map[string]string // principal -> pinned model id
}

// NewResolver creates a resolver over the given tier bindings.
func NewResolver(tiers map[string]ModelConfig) *Resolver {
	byID := make(map[string]ModelConfig, len(tiers))
	for _, cfg := range tiers {
		byID[cfg.ID] = cfg
	}
	return &Resolver{
		tiers:  tiers,
		byID:   byID,
		pinned: make(map[string]string),
	}
}

// Resolve returns the model bound to a tier name, if any.
func (r *Resolver) Resolve(tier string) (ModelConfig, bool) {
	cfg, ok := r.tiers[tier]
	return cfg, ok
}

// ResolveByID returns a model by its concrete id, if configured anywhere.
func (r *Resolver) ResolveByID(id string) (ModelConfig, bool) {
	cfg, ok := r.byID[id]
	return cfg, ok
}

// Pin restricts a principal to one concrete model. Pinned models take
// precedence over tier resolution.
func (r *Resolver) Pin(principal, modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned[principal] = modelID
}

// Unpin removes a principal's pin.
func (r *Resolver) Unpin(principal string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pinned, principal)
}

func (r *Resolver) pinFor(principal string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.pinned[principal]
	return id, ok
}

// ResolveFor picks the model for one request.
//
// Precedence: an explicit pinned model id, then the principal's pin, then
// vision routing (vision tier, falling back to premium) when the request
// carries images, then the tier for the classified complexity.
func (r *Resolver) ResolveFor(tier string, principal, pinnedModel string, hasImages bool) (ModelConfig, bool) {
	if pinnedModel != "" {
		if cfg, ok := r.byID[pinnedModel]; ok {
			return cfg, true
		}
	}
	if id, ok := r.pinFor(principal); ok {
		if cfg, ok := r.byID[id]; ok {
			return cfg, true
		}
	}
	if hasImages {
		if cfg, ok := r.tiers[TierVision]; ok {
			return cfg, true
		}
		return r.Resolve(TierPremium)
	}
	return r.Resolve(tier)
}

// TierForComplexity maps a complexity class to its serving tier.
func TierForComplexity(c Complexity) string {
	switch c {
	case ComplexityFlash:
		return TierFast
	case ComplexitySimple:
		return TierStandard
	default:
		return TierPremium
	}
}

// DowngradeChain returns the tiers to try, in order, after the given tier's
// provider fails: premium degrades through standard to fast; standard
// degrades to fast; everything else has no downgrade.
func DowngradeChain(tier string) []string {
	switch tier {
	case TierPremium:
		return []string{TierStandard, TierFast}
	case TierStandard:
		return []string{TierFast}
	default:
		return nil
	}
}
