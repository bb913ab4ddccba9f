// Package stream holds in-flight partial answers. The agent loop's
// streaming producer publishes accumulating text under the request id;
// an unrelated reader polls it. The two sides are decoupled by time: the
// producer never learns whether anyone is reading, and entries expire on
// their own.
package stream

import (
	"context"
	"sync"
	"time"
)

// Snapshot is one published state of an in-flight answer.
type Snapshot struct {
	Text string
	Done bool
}

// Store is the shared partial-answer state store.
type Store interface {
	// Publish replaces the snapshot for a request and refreshes its TTL.
	// Best effort: failures are swallowed, a missing snapshot only
	// degrades the polling experience.
	Publish(ctx context.Context, requestID string, snap Snapshot)

	// Get returns the current snapshot, if it hasn't expired.
	Get(ctx context.Context, requestID string) (Snapshot, bool)
}

// Memory is the in-process store backend.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   func() time.Time
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// NewMemory creates an in-memory store. A nil clock uses time.Now.
func NewMemory(ttl time.Duration, clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Publish implements Store.
func (m *Memory) Publish(_ context.Context, requestID string, snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[requestID] = memoryEntry{
		snap:      snap,
		expiresAt: m.clock().Add(m.ttl),
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, requestID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[requestID]
	if !ok {
		return Snapshot{}, false
	}
	if m.clock().After(e.expiresAt) {
		delete(m.entries, requestID)
		return Snapshot{}, false
	}
	return e.snap, true
}

// Publisher batches text deltas before publishing so pollers see updates
// every few words instead of every token.
type Publisher struct {
	store     Store
	requestID string
	minChars  int

	text      string
	published int
}

// NewPublisher wraps a store for one request. minChars <= 0 defaults to 30.
func NewPublisher(store Store, requestID string, minChars int) *Publisher {
	if minChars <= 0 {
		minChars = 30
	}
	return &Publisher{store: store, requestID: requestID, minChars: minChars}
}

// Append adds a delta and publishes when enough new text accumulated.
func (p *Publisher) Append(ctx context.Context, delta string) {
	p.text += delta
	if len(p.text)-p.published >= p.minChars {
		p.store.Publish(ctx, p.requestID, Snapshot{Text: p.text})
		p.published = len(p.text)
	}
}

// Finish publishes the final text with the done marker.
func (p *Publisher) Finish(ctx context.Context, finalText string) {
	if finalText != "" {
		p.text = finalText
	}
	p.store.Publish(ctx, p.requestID, Snapshot{Text: p.text, Done: true})
	p.published = len(p.text)
}
