// Package cache memoizes tool results keyed by (tool, canonicalized
// arguments). Only side-effect-free tools belong here; the registry's
// cacheable flag is the gate. The cache is always optional: an unavailable
// backend degrades to misses, never to failures.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// keyPrefix namespaces all cache keys in shared backends.
const keyPrefix = "sable:cache:"

// Store is the result cache contract.
type Store interface {
	// Get returns the cached value for (tool, args), if present and fresh.
	Get(ctx context.Context, tool string, args map[string]any) (any, bool)

	// Set stores a value with the backend's TTL and the given
	// invalidation tags.
	Set(ctx context.Context, tool string, args map[string]any, value any, tags []string)

	// InvalidateTag removes every entry carrying the tag. Entries written
	// before tagging existed carry no tags; those are swept coarsely.
	InvalidateTag(ctx context.Context, tag string)

	// Flush removes everything.
	Flush(ctx context.Context)
}

// Key computes the stable cache key for a tool call.
//
// encoding/json marshals map keys in sorted order at every nesting level,
// so identical argument objects always canonicalize to the same bytes.
func Key(tool string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(map[string]any{
		"tool":  tool,
		"input": args,
	})
	if err != nil {
		// unmarshalable args never hit the cache
		return ""
	}
	sum := sha256.Sum256(payload)
	return keyPrefix + tool + ":" + hex.EncodeToString(sum[:])[:24]
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
