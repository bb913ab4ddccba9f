package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
	tags      []string
}

// Memory is the in-process cache backend. Bounded by MaxEntries with
// oldest-first eviction; TTL expiry is independent of eviction.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string // insertion order, oldest first
	ttl        time.Duration
	maxEntries int
	clock      Clock
}

// NewMemory creates an in-memory cache. A nil clock uses time.Now.
func NewMemory(ttl time.Duration, maxEntries int, clock Clock) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		entries:    make(map[string]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, tool string, args map[string]any) (any, bool) {
	key := Key(tool, args)
	if key == "" {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.clock().After(e.expiresAt) {
		m.remove(key)
		return nil, false
	}
	return e.value, true
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, tool string, args map[string]any, value any, tags []string) {
	key := Key(tool, args)
	if key == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		m.order = append(m.order, key)
	}
	m.entries[key] = &entry{
		value:     value,
		expiresAt: m.clock().Add(m.ttl),
		tags:      tags,
	}

	// evict oldest entries beyond the bound
	for m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		oldest := m.order[0]
		m.remove(oldest)
	}
}

// InvalidateTag implements Store. Untagged entries predate tag derivation,
// so they are swept too rather than risking stale reads.
func (m *Memory) InvalidateTag(_ context.Context, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var doomed []string
	for key, e := range m.entries {
		if len(e.tags) == 0 {
			doomed = append(doomed, key)
			continue
		}
		for _, t := range e.tags {
			if t == tag {
				doomed = append(doomed, key)
				break
			}
		}
	}
	for _, key := range doomed {
		m.remove(key)
	}
}

// Flush implements Store.
func (m *Memory) Flush(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
	m.order = nil
}

// Len returns the live entry count (expired entries included until read).
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// remove deletes an entry and its order slot. Caller holds the lock.
func (m *Memory) remove(key string) {
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
