package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublishGet(t *testing.T) {
	s := NewMemory(10*time.Minute, nil)
	ctx := context.Background()

	_, ok := s.Get(ctx, "req-1")
	assert.False(t, ok)

	s.Publish(ctx, "req-1", Snapshot{Text: "partial"})
	snap, ok := s.Get(ctx, "req-1")
	require.True(t, ok)
	assert.Equal(t, "partial", snap.Text)
	assert.False(t, snap.Done)
}

func TestMemoryTTLExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewMemory(10*time.Minute, func() time.Time { return now })
	ctx := context.Background()

	s.Publish(ctx, "req-1", Snapshot{Text: "partial"})

	now = now.Add(11 * time.Minute)
	_, ok := s.Get(ctx, "req-1")
	assert.False(t, ok, "snapshots expire on their own")

	// the producer keeps publishing even after the consumer's view expired
	s.Publish(ctx, "req-1", Snapshot{Text: "more text", Done: true})
	snap, ok := s.Get(ctx, "req-1")
	require.True(t, ok)
	assert.True(t, snap.Done)
}

func TestPublisherBatchesDeltas(t *testing.T) {
	s := NewMemory(10*time.Minute, nil)
	ctx := context.Background()
	p := NewPublisher(s, "req-2", 10)

	p.Append(ctx, "abc")
	_, ok := s.Get(ctx, "req-2")
	assert.False(t, ok, "below the batch threshold nothing is published")

	p.Append(ctx, "defghijklm")
	snap, ok := s.Get(ctx, "req-2")
	require.True(t, ok)
	assert.Equal(t, "abcdefghijklm", snap.Text)

	p.Append(ctx, "x")
	snap, _ = s.Get(ctx, "req-2")
	assert.Equal(t, "abcdefghijklm", snap.Text, "small tail deltas wait for the next batch")

	p.Finish(ctx, "")
	snap, ok = s.Get(ctx, "req-2")
	require.True(t, ok)
	assert.True(t, snap.Done)
	assert.Equal(t, "abcdefghijklmx", snap.Text, "finish flushes everything")
}

func TestPublisherFinishOverridesText(t *testing.T) {
	s := NewMemory(10*time.Minute, nil)
	ctx := context.Background()
	p := NewPublisher(s, "req-3", 5)

	p.Append(ctx, "draft text")
	p.Finish(ctx, "final answer")

	snap, ok := s.Get(ctx, "req-3")
	require.True(t, ok)
	assert.Equal(t, "final answer", snap.Text)
	assert.True(t, snap.Done)
}
